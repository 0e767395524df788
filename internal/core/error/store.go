package errx

import (
	"database/sql"
	"errors"
	"net/http"
)

// WrapStore maps SQL store errors onto AppError. sql.ErrNoRows becomes a not-found.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return New(errors.Join(ErrSessionNotFound, err), http.StatusNotFound, StoreErrorMessage)
	}
	return New(err, http.StatusServiceUnavailable, StoreErrorMessage)
}
