package database

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when a requested document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate is returned when a unique index rejects a write
	ErrDuplicate = errors.New("document already exists")

	// ErrVersionConflict is returned when a round was saved by someone else
	// between our read and our write
	ErrVersionConflict = errors.New("document was modified concurrently")
)

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
