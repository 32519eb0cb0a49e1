package forkydb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/forkyai/forky/internal/storage"
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows into storage.ErrNotFound — the same idiom as the teacher's
// internal/storage/dolt/errors.go wrapDBError.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func wrapTransactionError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, storage.ErrTransaction, err)
}

func wrapScanError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, storage.ErrScan, err)
}

func wrapQueryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, storage.ErrQuery, err)
}

func wrapExecError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, storage.ErrTransaction, err)
}
