package entity

import (
	"context"

	"github.com/groblegark/agora/internal/ledger"
)

// Op is an operation class the authorization gate distinguishes.
type Op string

const (
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Authorizer decides whether actor may perform op on the entity identified
// by subject, created by creator. The status service implements this; a nil
// Authorizer on a store allows everything.
type Authorizer interface {
	Authorize(ctx context.Context, op Op, actor, creator string, subject ledger.Ref) error
}
