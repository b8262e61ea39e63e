// Package buzz implements the platform's virtual-currency ledger: per-account
// balances plus an immutable transaction log. The ledger shares the relational
// store with the rest of the system so callers can run a transfer inside the
// same transaction as their entity writes.
package buzz

import (
	"context"
	"errors"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("transfer amount must be positive")
)

type TransferInput struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        int64
	Type          models.BuzzTransactionType
	Description   string
}

type Ledger interface {
	// WithTx returns a ledger bound to the given transaction or database
	// handle, so a transfer can join a caller's commit/abort unit.
	WithTx(tx bun.IDB) Ledger
	GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error)
	// Transfer moves funds between accounts, re-checking the source balance
	// at debit time regardless of any check the caller already made.
	Transfer(ctx context.Context, input TransferInput) (*models.BuzzTransaction, error)
	// EnsureAccount creates a zero-balance account row if none exists.
	EnsureAccount(ctx context.Context, accountID uuid.UUID) error
}
