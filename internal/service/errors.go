package service

import (
	"errors"

	"postings-ledger/internal/repository"
)

// notFound maps a repository miss to the entity specific error.
func notFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}

// optional turns a repository miss into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
