package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseID converts an external identifier into the ObjectID form used by the
// prediction core. Every ID that crosses into services goes through here so two
// spellings of the same team or user can never compare unequal.
func ParseID(raw string) (primitive.ObjectID, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return primitive.NilObjectID, fmt.Errorf("id is empty")
	}
	id, err := primitive.ObjectIDFromHex(trimmed)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%q is not a valid id", raw)
	}
	return id, nil
}

// MustID is ParseID for fixtures and seed data; it panics on bad input.
func MustID(raw string) primitive.ObjectID {
	id, err := ParseID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// ContainsID reports whether id is present in ids.
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
