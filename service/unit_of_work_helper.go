package service

import (
	"context"
	"errors"
	"fmt"
)

// committedError marks an operation error whose state changes must still be committed,
// such as settling an auction discovered to be expired while bidding.
type committedError struct {
	err error
}

func (e *committedError) Error() string { return e.err.Error() }
func (e *committedError) Unwrap() error { return e.err }

// commitAndFail asks withUnitOfWork to commit and then return err to the caller
func commitAndFail(err error) error {
	return &committedError{err: err}
}

// withUnitOfWork runs fn in a new unit of work. It commits when fn succeeds and rolls back otherwise.
func withUnitOfWork(ctx context.Context, factory UnitOfWorkFactory, fn func(uow UnitOfWork) error) error {
	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	fnErr := fn(uow)
	var committed *committedError
	if fnErr != nil && !errors.As(fnErr, &committed) {
		return fnErr
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if committed != nil {
		return committed.err
	}
	return nil
}
