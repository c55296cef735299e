package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("record already exists")
	ErrBadReference   = errors.New("referenced record does not exist")
	ErrAlreadyDeleted = errors.New("record already deleted")
)

// mapPQError turns constraint violations into repository errors.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return ErrDuplicate
	case "23503":
		return ErrBadReference
	}
	return err
}
