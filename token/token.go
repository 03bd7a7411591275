package token

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/miekg/pkcs11"
	"github.com/rs/zerolog"

	"github.com/niclabs/hwtoken/core"
	"github.com/niclabs/hwtoken/objects"
	"github.com/niclabs/hwtoken/storage"
)

// A Token holds the hardware feature objects stored under one label. The
// token lock is held for the whole of every create or modify sequence, so
// templates are never edited concurrently.
type Token struct {
	sync.Mutex
	Label   string
	Objects objects.Objects

	db            storage.ObjectStorage
	hwf           *objects.HWFeature
	maxAttributes int
	liveClock     bool
	lastHandle    uint
	now           func() time.Time
	log           zerolog.Logger
}

func NewToken(conf core.TokenConfig, db storage.ObjectStorage, hwf *objects.HWFeature, log zerolog.Logger) (*Token, error) {
	if len(conf.Label) > 32 {
		return nil, objects.NewError("token.NewToken", "Label with more than 32 chars", pkcs11.CKR_ARGUMENTS_BAD)
	}
	return &Token{
		Label:         conf.Label,
		Objects:       make(objects.Objects),
		db:            db,
		hwf:           hwf,
		maxAttributes: conf.MaxAttributes,
		liveClock:     conf.LiveClock,
		now:           time.Now,
		log:           log.With().Str("token", conf.Label).Logger(),
	}, nil
}

// Load replaces the objects in memory by the stored ones.
func (token *Token) Load() error {
	token.Lock()
	defer token.Unlock()
	stored, err := token.db.GetObjects(token.Label)
	if err != nil {
		return objects.NewError("Token.Load", err.Error(), pkcs11.CKR_DEVICE_ERROR)
	}
	maxHandle, err := token.db.GetMaxHandle(token.Label)
	if err != nil {
		return objects.NewError("Token.Load", err.Error(), pkcs11.CKR_DEVICE_ERROR)
	}
	for _, object := range stored {
		object.Template.MaxAttributes = token.maxAttributes
	}
	token.Objects = stored
	token.lastHandle = maxHandle
	token.log.Info().Int("objects", len(stored)).Msg("token loaded")
	return nil
}

// CreateObject builds, checks and stores a new hardware feature object
// from the caller's attributes, and returns a copy of it. Nothing is stored
// if any check fails.
func (token *Token) CreateObject(attrs []*pkcs11.Attribute) (*objects.Object, error) {
	if attrs == nil {
		return nil, objects.NewError("Token.CreateObject", "got NULL pointer", pkcs11.CKR_ARGUMENTS_BAD)
	}
	token.Lock()
	defer token.Unlock()

	input := objects.NewTemplate(token.maxAttributes)
	for _, attr := range objects.FromPKCS11(attrs) {
		if err := input.Update(attr); err != nil {
			return nil, err
		}
	}

	class, err := input.GetULong(pkcs11.CKA_CLASS)
	if err != nil {
		return nil, err
	}
	if class != pkcs11.CKO_HW_FEATURE {
		return nil, objects.NewError("Token.CreateObject", "object class not supported", pkcs11.CKR_TEMPLATE_INCONSISTENT)
	}
	featureType, err := input.GetULong(pkcs11.CKA_HW_FEATURE_TYPE)
	if err != nil {
		return nil, err
	}
	feature, err := objects.NewFeature(token.hwf, featureType)
	if err != nil {
		return nil, err
	}

	for _, attr := range input.Attributes() {
		if err := feature.ValidateAttribute(input, attr, objects.ModeCreate); err != nil {
			return nil, err
		}
	}

	tmpl := objects.NewTemplate(token.maxAttributes)
	if err := token.hwf.Base.SetDefaultBaseAttributes(tmpl, objects.ModeCreate); err != nil {
		return nil, err
	}
	if err := feature.SetDefaultAttributes(tmpl, objects.ModeCreate); err != nil {
		return nil, err
	}
	if err := tmpl.Merge(input); err != nil {
		return nil, err
	}
	if err := feature.CheckRequiredAttributes(tmpl, objects.ModeCreate); err != nil {
		return nil, err
	}

	object := &objects.Object{
		Handle:   token.lastHandle + 1,
		UniqueID: uuid.New().String(),
		Kind:     feature.Kind,
		Template: tmpl,
	}
	if err := tmpl.Update(&objects.Attribute{Type: objects.CKAUniqueID, Value: []byte(object.UniqueID)}); err != nil {
		return nil, err
	}
	if err := token.db.SaveObject(token.Label, object); err != nil {
		return nil, objects.NewError("Token.CreateObject", err.Error(), pkcs11.CKR_DEVICE_ERROR)
	}
	token.lastHandle = object.Handle
	token.Objects[object.Handle] = object
	token.log.Info().Uint("handle", object.Handle).Stringer("kind", object.Kind).Msg("object created")
	cp := *object
	cp.Template = tmpl.Clone()
	return &cp, nil
}

// SetAttributeValue applies attrs to an existing object. The stored object
// is only replaced once every attribute was accepted.
func (token *Token) SetAttributeValue(handle uint, attrs []*pkcs11.Attribute) error {
	token.Lock()
	defer token.Unlock()

	object, err := token.getObject(handle)
	if err != nil {
		return err
	}
	if !object.Flag(pkcs11.CKA_MODIFIABLE, true) {
		return objects.NewError("Token.SetAttributeValue", "object is not modifiable", pkcs11.CKR_ATTRIBUTE_READ_ONLY)
	}
	feature, err := objects.FeatureOf(token.hwf, object.Kind)
	if err != nil {
		return err
	}

	tmpl := object.Template.Clone()
	for _, attr := range objects.FromPKCS11(attrs) {
		if err := feature.ValidateAttribute(tmpl, attr, objects.ModeModify); err != nil {
			return err
		}
		if err := tmpl.Update(attr); err != nil {
			return err
		}
	}
	if err := feature.CheckRequiredAttributes(tmpl, objects.ModeModify); err != nil {
		return err
	}

	updated := *object
	updated.Template = tmpl
	if err := token.db.SaveObject(token.Label, &updated); err != nil {
		return objects.NewError("Token.SetAttributeValue", err.Error(), pkcs11.CKR_DEVICE_ERROR)
	}
	token.Objects[handle] = &updated
	token.log.Info().Uint("handle", handle).Int("attributes", len(attrs)).Msg("object modified")
	return nil
}

// GetAttributeValue returns copies of the requested attributes. With the
// live clock enabled, the CKA_VALUE of a clock is the current UTC time.
func (token *Token) GetAttributeValue(handle uint, types []uint) ([]*pkcs11.Attribute, error) {
	token.Lock()
	defer token.Unlock()

	object, err := token.getObject(handle)
	if err != nil {
		return nil, err
	}
	result := make([]*objects.Attribute, 0, len(types))
	for _, attrType := range types {
		if attrType == pkcs11.CKA_VALUE && object.Kind == objects.KindClock && token.liveClock {
			result = append(result, &objects.Attribute{Type: attrType, Value: token.clockReading()})
			continue
		}
		attr, ok := object.Template.Find(attrType)
		if !ok {
			return nil, objects.NewError("Token.GetAttributeValue", fmt.Sprintf("attribute 0x%x not found", attrType), pkcs11.CKR_ATTRIBUTE_TYPE_INVALID)
		}
		result = append(result, attr)
	}
	return objects.ToPKCS11(result), nil
}

// clockReading formats the current time like CK_TOKEN_INFO.utcTime.
func (token *Token) clockReading() []byte {
	return []byte(token.now().UTC().Format("20060102150405") + "00")
}

func (token *Token) DestroyObject(handle uint) error {
	token.Lock()
	defer token.Unlock()

	object, err := token.getObject(handle)
	if err != nil {
		return err
	}
	if !object.Flag(pkcs11.CKA_DESTROYABLE, true) {
		return objects.NewError("Token.DestroyObject", "object is not destroyable", pkcs11.CKR_ACTION_PROHIBITED)
	}
	if err := token.db.DeleteObject(token.Label, handle); err != nil {
		return objects.NewError("Token.DestroyObject", err.Error(), pkcs11.CKR_DEVICE_ERROR)
	}
	delete(token.Objects, handle)
	token.log.Info().Uint("handle", handle).Msg("object destroyed")
	return nil
}

// FindObjects returns, in ascending order, the handles of the objects
// holding every attribute of attrs.
func (token *Token) FindObjects(attrs []*pkcs11.Attribute) []uint {
	token.Lock()
	defer token.Unlock()

	query := objects.FromPKCS11(attrs)
	found := make([]uint, 0)
	for handle, object := range token.Objects {
		if object.Template.Match(query) {
			found = append(found, handle)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	return found
}

// GetObject returns a copy of the object that uses the handle provided.
func (token *Token) GetObject(handle uint) (*objects.Object, error) {
	token.Lock()
	defer token.Unlock()
	object, err := token.getObject(handle)
	if err != nil {
		return nil, err
	}
	cp := *object
	cp.Template = object.Template.Clone()
	return &cp, nil
}

func (token *Token) getObject(handle uint) (*objects.Object, error) {
	if object, ok := token.Objects[handle]; !ok {
		return nil, objects.NewError("Token.GetObject", "object not found", pkcs11.CKR_OBJECT_HANDLE_INVALID)
	} else {
		return object, nil
	}
}
