package sqlite3

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/niclabs/hwtoken/objects"
)

// Registered database/sql driver names.
const (
	DriverCgo    = "sqlite3"
	DriverPureGo = "sqlite"
)

// DB is a wrapper over a sql.DB object, complying with storage
// interface.
type DB struct {
	*sql.DB
}

// GetDatabase opens the database at path with the given driver.
func GetDatabase(driver, path string) (*DB, error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, err
	}
	return &DB{
		DB: db,
	}, nil
}

// Creates the tables if they doesn't exist yet.
func (db DB) InitStorage() error {
	if err := db.createTables(); err != nil {
		return fmt.Errorf("create tables: %v", err)
	}
	return nil
}

func (db DB) SaveObject(label string, object *objects.Object) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := saveObject(tx, label, object); err != nil {
		_ = tx.Rollback()
		return err
	}
	// Committing
	return tx.Commit()
}

func saveObject(tx *sql.Tx, label string, object *objects.Object) error {
	handle := int64(object.Handle)
	if _, err := tx.Exec(InsertCryptoObjectQuery, label, handle, object.UniqueID, int64(object.Kind)); err != nil {
		return err
	}
	// Cleaning old attributes
	if _, err := tx.Exec(CleanAttributesQuery, label, handle); err != nil {
		return err
	}
	attrStmt, err := tx.Prepare(InsertAttributeQuery)
	if err != nil {
		return err
	}
	defer attrStmt.Close()
	// Saving the attributes
	for i, attr := range object.Template.Attributes() {
		if _, err := attrStmt.Exec(label, handle, i, int64(attr.Type), attr.Value); err != nil {
			return err
		}
	}
	return nil
}

func (db DB) GetObjects(label string) (objects.Objects, error) {
	rows, err := db.Query(GetCryptoObjectAttrsQuery, label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(objects.Objects)
	var (
		aHandle   int64
		aUniqueID string
		aKind     int64
		aType     sql.NullInt64
		aValue    []byte
	)
	for rows.Next() {
		if err := rows.Scan(&aHandle, &aUniqueID, &aKind, &aType, &aValue); err != nil {
			return nil, err
		}
		object, ok := result[uint(aHandle)]
		if !ok {
			object = &objects.Object{
				Handle:   uint(aHandle),
				UniqueID: aUniqueID,
				Kind:     objects.Kind(aKind),
				Template: objects.NewTemplate(0),
			}
			result[object.Handle] = object
		}
		if aType.Valid {
			attr := &objects.Attribute{Type: uint(aType.Int64)}
			if aValue != nil {
				attr.Value = append([]byte{}, aValue...)
			}
			if err := object.Template.Update(attr); err != nil {
				return nil, err
			}
		}
	}
	return result, rows.Err()
}

func (db DB) DeleteObject(label string, handle uint) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(CleanAttributesQuery, label, int64(handle)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(DeleteCryptoObjectQuery, label, int64(handle)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (db DB) GetMaxHandle(label string) (uint, error) {
	var maxHandle int64
	if err := db.QueryRow(GetMaxHandleQuery, label).Scan(&maxHandle); err != nil {
		return 0, err
	}
	return uint(maxHandle), nil
}

func (db DB) CloseStorage() error {
	return db.Close()
}

func (db DB) createTables() error {
	for _, stmt := range CreateStmts {
		_, err := db.Exec(stmt)
		if err != nil {
			return fmt.Errorf("in stmt %s: %v", stmt, err)
		}
	}
	return nil
}
