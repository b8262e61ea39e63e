package buzz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BunLedger struct {
	db bun.IDB
}

func NewBunLedger(db *bun.DB) *BunLedger {
	return &BunLedger{db: db}
}

func (l *BunLedger) WithTx(tx bun.IDB) Ledger {
	return &BunLedger{db: tx}
}

func (l *BunLedger) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var account models.BuzzAccount
	err := l.db.NewSelect().Model(&account).Where("id = ?", accountID).Scan(ctx)
	if err != nil {
		// An account that was never funded has a zero balance.
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return account.Balance, nil
}

func (l *BunLedger) Transfer(ctx context.Context, input TransferInput) (*models.BuzzTransaction, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// Conditional debit closes the check-then-act window: the balance guard
	// sits in the UPDATE itself, so a concurrent transfer cannot race past it.
	res, err := l.db.NewUpdate().
		Model(&models.BuzzAccount{}).
		Set("balance = balance - ?", input.Amount).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ? AND balance >= ?", input.FromAccountID, input.Amount).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to debit account %s: %w", input.FromAccountID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInsufficientFunds
	}

	credit := &models.BuzzAccount{ID: input.ToAccountID, Balance: input.Amount}
	_, err = l.db.NewInsert().
		Model(credit).
		On("CONFLICT (id) DO UPDATE").
		Set("balance = ba.balance + EXCLUDED.balance").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to credit account %s: %w", input.ToAccountID, err)
	}

	transaction := &models.BuzzTransaction{
		ID:            uuid.Must(uuid.NewRandom()),
		FromAccountID: input.FromAccountID,
		ToAccountID:   input.ToAccountID,
		Amount:        input.Amount,
		Type:          input.Type,
		Description:   input.Description,
	}
	if _, err := l.db.NewInsert().Model(transaction).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	return transaction, nil
}

func (l *BunLedger) EnsureAccount(ctx context.Context, accountID uuid.UUID) error {
	account := &models.BuzzAccount{ID: accountID}
	_, err := l.db.NewInsert().
		Model(account).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	return err
}
