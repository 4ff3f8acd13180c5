package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/groblegark/agora/internal/ledger"
)

// Error taxonomy surfaced by stores. Resolution and authorization errors are
// always returned to the immediate caller; each represents a decision the
// caller must make (retry, reload, show a permission error).
var (
	// ErrNotFound means the identity has no records on the ledger.
	ErrNotFound = errors.New("entity: not found")

	// ErrPermissionDenied means the status gate refused the operation.
	ErrPermissionDenied = errors.New("entity: permission denied")

	// ErrBackendTimeout means the ledger call missed its deadline. The cache
	// is left untouched, as if the call never started.
	ErrBackendTimeout = errors.New("entity: backend timeout")

	// ErrCreationRejected means the runtime refused a create (failed
	// validation upstream).
	ErrCreationRejected = errors.New("entity: creation rejected")
)

// StaleWriteError means the caller's believed head is no longer the actual
// head. The caller must re-resolve and rebase its edit before retrying; the
// store never retries automatically.
type StaleWriteError struct {
	Original     ledger.Ref
	BelievedHead ledger.Ref
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("entity: stale write against %s (believed head %s)", e.Original, e.BelievedHead)
}

// mapCallErr translates a ledger boundary error into the store taxonomy.
func mapCallErr(err error) error {
	switch {
	case err == nil:
		return nil
	case ledger.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case ledger.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	default:
		return err
	}
}
