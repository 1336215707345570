package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate signals a unique constraint rejected the write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrCapacityExceeded signals an event has no seat left for the write.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
