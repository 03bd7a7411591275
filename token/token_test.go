package token

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/miekg/pkcs11"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niclabs/hwtoken/core"
	"github.com/niclabs/hwtoken/objects"
)

func testConfig(t *testing.T) *core.Config {
	return &core.Config{
		General: core.GeneralConfig{LogLevel: "disabled"},
		Token:   core.TokenConfig{Label: "TCHSM", MaxAttributes: 32},
		Storage: core.StorageConfig{
			DatabaseType: "sqlite",
			Path:         filepath.Join(t.TempDir(), "hwtoken.db"),
		},
	}
}

func newTestApp(t *testing.T, config *core.Config) *Application {
	t.Helper()
	app, err := NewApplication(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func requireRV(t *testing.T, err error, code uint) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkcs11.Error(code)), "want %s, got %v", objects.RVName(code), err)
}

func hwFeature(featureType uint, attrs ...*pkcs11.Attribute) []*pkcs11.Attribute {
	return append([]*pkcs11.Attribute{
		{Type: pkcs11.CKA_CLASS, Value: objects.ULongAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_HW_FEATURE).Value},
		{Type: pkcs11.CKA_HW_FEATURE_TYPE, Value: objects.ULongAttribute(pkcs11.CKA_HW_FEATURE_TYPE, uint64(featureType)).Value},
	}, attrs...)
}

func TestToken_CreateCounter(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	token := app.Token

	object, err := token.CreateObject(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER))
	require.NoError(t, err)
	assert.Equal(t, objects.KindCounter, object.Kind)
	assert.NotEmpty(t, object.UniqueID)

	value, found := object.Template.Find(pkcs11.CKA_VALUE)
	require.True(t, found)
	assert.Equal(t, 0, value.Len())
	for _, attrType := range []uint{pkcs11.CKA_HAS_RESET, pkcs11.CKA_RESET_ON_INIT} {
		flag, err := object.Template.GetBool(attrType)
		require.NoError(t, err)
		assert.False(t, flag)
	}

	err = token.SetAttributeValue(object.Handle, []*pkcs11.Attribute{pkcs11.NewAttribute(pkcs11.CKA_HAS_RESET, true)})
	requireRV(t, err, pkcs11.CKR_ATTRIBUTE_READ_ONLY)
	stored, err := token.GetObject(object.Handle)
	require.NoError(t, err)
	hasReset, err := stored.Template.GetBool(pkcs11.CKA_HAS_RESET)
	require.NoError(t, err)
	assert.False(t, hasReset)

	// A batch with one rejected attribute changes nothing.
	err = token.SetAttributeValue(object.Handle, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, "x"),
		pkcs11.NewAttribute(pkcs11.CKA_HAS_RESET, true),
	})
	requireRV(t, err, pkcs11.CKR_ATTRIBUTE_READ_ONLY)
	stored, err = token.GetObject(object.Handle)
	require.NoError(t, err)
	assert.Equal(t, "", stored.Label())

	reopened := newTestApp(t, app.Config)
	persisted, err := reopened.Token.GetObject(object.Handle)
	require.NoError(t, err)
	assert.Equal(t, "", persisted.Label())
}

func TestToken_CreateObjectReturnsCopy(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	object, err := app.Token.CreateObject(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER))
	require.NoError(t, err)
	require.NoError(t, object.Template.Update(objects.BoolAttribute(pkcs11.CKA_HAS_RESET, true)))
	object.Template.Remove(pkcs11.CKA_VALUE)

	stored, err := app.Token.GetObject(object.Handle)
	require.NoError(t, err)
	hasReset, err := stored.Template.GetBool(pkcs11.CKA_HAS_RESET)
	require.NoError(t, err)
	assert.False(t, hasReset)
	_, found := stored.Template.Find(pkcs11.CKA_VALUE)
	assert.True(t, found)
}

func TestToken_CreateCounterRejectsCallerValues(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	_, err := app.Token.CreateObject(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER,
		pkcs11.NewAttribute(pkcs11.CKA_RESET_ON_INIT, true)))
	requireRV(t, err, pkcs11.CKR_ATTRIBUTE_READ_ONLY)
	assert.Empty(t, app.Token.Objects)
}

func TestToken_CreateClock(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	token := app.Token

	object, err := token.CreateObject(hwFeature(pkcs11.CKH_CLOCK,
		&pkcs11.Attribute{Type: pkcs11.CKA_VALUE, Value: []byte{0x01, 0x02}},
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, "clock")))
	require.NoError(t, err)
	assert.Equal(t, objects.KindClock, object.Kind)
	assert.Equal(t, "clock", object.Label())

	attrs, err := token.GetAttributeValue(object.Handle, []uint{pkcs11.CKA_VALUE})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, attrs[0].Value)

	require.NoError(t, token.SetAttributeValue(object.Handle, []*pkcs11.Attribute{
		{Type: pkcs11.CKA_VALUE, Value: []byte{0x03}},
	}))
	attrs, err = token.GetAttributeValue(object.Handle, []uint{pkcs11.CKA_VALUE})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03}, attrs[0].Value)

	err = token.SetAttributeValue(object.Handle, []*pkcs11.Attribute{
		{Type: pkcs11.CKA_HW_FEATURE_TYPE, Value: objects.ULongAttribute(pkcs11.CKA_HW_FEATURE_TYPE, pkcs11.CKH_MONOTONIC_COUNTER).Value},
	})
	requireRV(t, err, pkcs11.CKR_ATTRIBUTE_READ_ONLY)
}

func TestToken_CreateClockWithoutValue(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	object, err := app.Token.CreateObject(hwFeature(pkcs11.CKH_CLOCK))
	require.NoError(t, err)
	value, found := object.Template.Find(pkcs11.CKA_VALUE)
	require.True(t, found)
	assert.Equal(t, 0, value.Len())
}

func TestToken_CreateObjectErrors(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	token := app.Token

	_, err := token.CreateObject(nil)
	requireRV(t, err, pkcs11.CKR_ARGUMENTS_BAD)

	_, err = token.CreateObject([]*pkcs11.Attribute{})
	requireRV(t, err, pkcs11.CKR_TEMPLATE_INCOMPLETE)

	_, err = token.CreateObject([]*pkcs11.Attribute{
		{Type: pkcs11.CKA_CLASS, Value: objects.ULongAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_DATA).Value},
	})
	requireRV(t, err, pkcs11.CKR_TEMPLATE_INCONSISTENT)

	_, err = token.CreateObject(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER)[:1])
	requireRV(t, err, pkcs11.CKR_TEMPLATE_INCOMPLETE)

	_, err = token.CreateObject(hwFeature(pkcs11.CKH_USER_INTERFACE))
	requireRV(t, err, pkcs11.CKR_ATTRIBUTE_VALUE_INVALID)

	_, err = token.CreateObject(hwFeature(pkcs11.CKH_CLOCK, &pkcs11.Attribute{Type: pkcs11.CKA_MODULUS, Value: []byte{1}}))
	requireRV(t, err, pkcs11.CKR_ATTRIBUTE_TYPE_INVALID)

	assert.Empty(t, token.Objects)
}

func TestToken_CreateObjectTemplateFull(t *testing.T) {
	config := testConfig(t)
	config.Token.MaxAttributes = 8
	app := newTestApp(t, config)

	_, err := app.Token.CreateObject(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER))
	requireRV(t, err, pkcs11.CKR_HOST_MEMORY)
	assert.Empty(t, app.Token.Objects)
}

func TestToken_ModifyLabelAndReload(t *testing.T) {
	config := testConfig(t)
	app, err := NewApplication(config)
	require.NoError(t, err)

	object, err := app.Token.CreateObject(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER))
	require.NoError(t, err)
	require.NoError(t, app.Token.SetAttributeValue(object.Handle, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, "renamed"),
	}))
	require.NoError(t, app.Close())

	reopened := newTestApp(t, config)
	stored, err := reopened.Token.GetObject(object.Handle)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Label())
	assert.Equal(t, object.UniqueID, stored.UniqueID)
	assert.Equal(t, objects.KindCounter, stored.Kind)

	next, err := reopened.Token.CreateObject(hwFeature(pkcs11.CKH_CLOCK))
	require.NoError(t, err)
	assert.Equal(t, object.Handle+1, next.Handle)
}

func TestToken_NotModifiable(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	object, err := app.Token.CreateObject(hwFeature(pkcs11.CKH_CLOCK,
		pkcs11.NewAttribute(pkcs11.CKA_MODIFIABLE, false),
		pkcs11.NewAttribute(pkcs11.CKA_DESTROYABLE, false)))
	require.NoError(t, err)

	err = app.Token.SetAttributeValue(object.Handle, []*pkcs11.Attribute{{Type: pkcs11.CKA_VALUE, Value: []byte{1}}})
	requireRV(t, err, pkcs11.CKR_ATTRIBUTE_READ_ONLY)
	requireRV(t, app.Token.DestroyObject(object.Handle), pkcs11.CKR_ACTION_PROHIBITED)
}

func TestToken_DestroyAndFind(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	token := app.Token

	clock, err := token.CreateObject(hwFeature(pkcs11.CKH_CLOCK))
	require.NoError(t, err)
	counter, err := token.CreateObject(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER))
	require.NoError(t, err)

	assert.Equal(t, []uint{clock.Handle, counter.Handle}, token.FindObjects(nil))
	assert.Equal(t, []uint{counter.Handle}, token.FindObjects(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER)))

	require.NoError(t, token.DestroyObject(clock.Handle))
	requireRV(t, token.DestroyObject(clock.Handle), pkcs11.CKR_OBJECT_HANDLE_INVALID)
	assert.Equal(t, []uint{counter.Handle}, token.FindObjects(nil))

	_, err = token.GetAttributeValue(clock.Handle, []uint{pkcs11.CKA_VALUE})
	requireRV(t, err, pkcs11.CKR_OBJECT_HANDLE_INVALID)
	_, err = token.GetAttributeValue(counter.Handle, []uint{pkcs11.CKA_MODULUS})
	requireRV(t, err, pkcs11.CKR_ATTRIBUTE_TYPE_INVALID)
}

func TestToken_LiveClock(t *testing.T) {
	config := testConfig(t)
	config.Token.LiveClock = true
	app := newTestApp(t, config)
	app.Token.now = func() time.Time {
		return time.Date(2026, 10, 19, 8, 30, 5, 0, time.UTC)
	}

	clock, err := app.Token.CreateObject(hwFeature(pkcs11.CKH_CLOCK))
	require.NoError(t, err)
	attrs, err := app.Token.GetAttributeValue(clock.Handle, []uint{pkcs11.CKA_VALUE})
	require.NoError(t, err)
	assert.Equal(t, "2026101908300500", string(attrs[0].Value))

	counter, err := app.Token.CreateObject(hwFeature(pkcs11.CKH_MONOTONIC_COUNTER))
	require.NoError(t, err)
	attrs, err = app.Token.GetAttributeValue(counter.Handle, []uint{pkcs11.CKA_VALUE})
	require.NoError(t, err)
	assert.Empty(t, attrs[0].Value)
}

func TestNewToken_LongLabel(t *testing.T) {
	_, err := NewToken(core.TokenConfig{Label: "a label that is way longer than thirty two chars"}, nil, nil, zerolog.Nop())
	requireRV(t, err, pkcs11.CKR_ARGUMENTS_BAD)
}
