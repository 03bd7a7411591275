package objects

// Mode is the editing context an attribute check runs in.
type Mode int

const (
	// ModeCreate is used while the initial attribute set of an object is
	// being established.
	ModeCreate Mode = iota
	// ModeModify covers every edit made after the object exists.
	ModeModify
)

func (mode Mode) String() string {
	switch mode {
	case ModeCreate:
		return "create"
	case ModeModify:
		return "modify"
	default:
		return "unknown"
	}
}
