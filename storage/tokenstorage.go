package storage

import "github.com/niclabs/hwtoken/objects"

// ObjectStorage persists the hardware feature objects of the tokens.
type ObjectStorage interface {
	// Executes the logic necessary to initialize the storage.
	InitStorage() error

	// Saves an object of the token with the given label, replacing the
	// stored object with the same handle.
	SaveObject(label string, object *objects.Object) error

	// Retrieves every object of the token with the given label.
	GetObjects(label string) (objects.Objects, error)

	// Deletes an object of the token with the given label.
	DeleteObject(label string, handle uint) error

	// Returns the biggest handle stored for the token, or zero.
	GetMaxHandle(label string) (uint, error)

	// Finalizes the use of the storage. The storage is not usable
	// If this method is called.
	CloseStorage() error
}
