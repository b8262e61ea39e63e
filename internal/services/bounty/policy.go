package bounty

import (
	"context"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/artfundry/bounty-server/internal/services/buzz"
	"github.com/google/uuid"
)

// fundsPolicy is the per-currency funds-movement capability. Only the
// platform currency enforces balances and moves money through the escrow
// account; every other currency passes through untouched.
type fundsPolicy interface {
	CheckFunds(ctx context.Context, ledger buzz.Ledger, accountID uuid.UUID, amount int64) error
	// Collect moves funds from the contributor into escrow.
	Collect(ctx context.Context, ledger buzz.Ledger, from uuid.UUID, amount int64, description string) error
	// Refund moves funds from escrow back to the recipient.
	Refund(ctx context.Context, ledger buzz.Ledger, to uuid.UUID, amount int64, description string) error
}

func policyFor(currency models.Currency) fundsPolicy {
	if currency == models.CurrencyBuzz {
		return buzzPolicy{}
	}

	return passthroughPolicy{}
}

type buzzPolicy struct{}

func (buzzPolicy) CheckFunds(ctx context.Context, ledger buzz.Ledger, accountID uuid.UUID, amount int64) error {
	balance, err := ledger.GetBalance(ctx, accountID)
	if err != nil {
		return err
	}
	if balance < amount {
		return buzz.ErrInsufficientFunds
	}

	return nil
}

func (buzzPolicy) Collect(ctx context.Context, ledger buzz.Ledger, from uuid.UUID, amount int64, description string) error {
	_, err := ledger.Transfer(ctx, buzz.TransferInput{
		FromAccountID: from,
		ToAccountID:   models.EscrowAccountID,
		Amount:        amount,
		Type:          models.BuzzTransactionTypeBounty,
		Description:   description,
	})
	return err
}

func (buzzPolicy) Refund(ctx context.Context, ledger buzz.Ledger, to uuid.UUID, amount int64, description string) error {
	_, err := ledger.Transfer(ctx, buzz.TransferInput{
		FromAccountID: models.EscrowAccountID,
		ToAccountID:   to,
		Amount:        amount,
		Type:          models.BuzzTransactionTypeRefund,
		Description:   description,
	})
	return err
}

// passthroughPolicy covers currencies settled outside the platform ledger.
type passthroughPolicy struct{}

func (passthroughPolicy) CheckFunds(context.Context, buzz.Ledger, uuid.UUID, int64) error {
	return nil
}

func (passthroughPolicy) Collect(context.Context, buzz.Ledger, uuid.UUID, int64, string) error {
	return nil
}

func (passthroughPolicy) Refund(context.Context, buzz.Ledger, uuid.UUID, int64, string) error {
	return nil
}
