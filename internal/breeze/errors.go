package breeze

import "errors"

var (
	// ErrUnmatchedForeignKey is returned when the foreign key columns of an association
	// do not belong to any data property of the entity
	ErrUnmatchedForeignKey = errors.New("could not find matching fk")
	ErrNoModels            = errors.New("no models to describe")
)
