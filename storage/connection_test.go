package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niclabs/hwtoken/core"
)

func TestNewDatabase(t *testing.T) {
	_, err := NewDatabase(core.StorageConfig{DatabaseType: "postgres", Path: "db"})
	assert.Error(t, err)

	_, err = NewDatabase(core.StorageConfig{DatabaseType: "sqlite"})
	assert.Error(t, err)

	db, err := NewDatabase(core.StorageConfig{
		DatabaseType: "sqlite",
		Path:         filepath.Join(t.TempDir(), "hwtoken.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.InitStorage())
	stored, err := db.GetObjects("TCHSM")
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.NoError(t, db.CloseStorage())
}
