package objects

// Allocator hands out the attributes synthesized as defaults. Each
// allocated attribute must either be transferred to a template or given
// back with Release before the synthesizing call returns.
type Allocator interface {
	// Allocate returns an attribute with a zeroed value of the given size.
	// A size of zero yields an attribute without a value buffer.
	Allocate(attrType uint, size int) (*Attribute, error)
	// Release gives back an attribute that was not consumed by a template.
	Release(attr *Attribute)
}

// HeapAllocator allocates attributes from the Go heap.
type HeapAllocator struct{}

func (HeapAllocator) Allocate(attrType uint, size int) (*Attribute, error) {
	attr := &Attribute{Type: attrType}
	if size > 0 {
		attr.Value = make([]byte, size)
	}
	return attr, nil
}

func (HeapAllocator) Release(attr *Attribute) {
	attr.Value = nil
}
