package storage

import (
	"fmt"

	"github.com/niclabs/hwtoken/core"
	"github.com/niclabs/hwtoken/storage/sqlite3"
)

// NewDatabase opens the storage selected by conf.DatabaseType. Both
// "sqlite3" (cgo driver) and "sqlite" (pure Go driver) use the same schema.
func NewDatabase(conf core.StorageConfig) (ObjectStorage, error) {
	switch conf.DatabaseType {
	case sqlite3.DriverCgo, sqlite3.DriverPureGo:
		if conf.Path == "" {
			return nil, fmt.Errorf("%s path not defined", conf.DatabaseType)
		}
		db, err := sqlite3.GetDatabase(conf.DatabaseType, conf.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("storage option not found: '%s'", conf.DatabaseType)
	}
}
