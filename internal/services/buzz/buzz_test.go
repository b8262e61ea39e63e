package buzz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestLedger(t *testing.T) (*BunLedger, *bun.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, table := range []interface{}{(*models.BuzzAccount)(nil), (*models.BuzzTransaction)(nil)} {
		_, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { db.Close() })
	return NewBunLedger(db), db
}

func setBalance(t *testing.T, ledger *BunLedger, accountID uuid.UUID, balance int64) {
	t.Helper()
	ctx := context.Background()

	account := &models.BuzzAccount{ID: accountID, Balance: balance}
	_, err := ledger.db.NewInsert().
		Model(account).
		On("CONFLICT (id) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Exec(ctx)
	require.NoError(t, err)
}

func TestGetBalance(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	// An account that was never funded reads as zero
	balance, err := ledger.GetBalance(ctx, uuid.New())
	require.NoError(t, err)
	require.Zero(t, balance)

	funded := uuid.New()
	setBalance(t, ledger, funded, 77)
	balance, err = ledger.GetBalance(ctx, funded)
	require.NoError(t, err)
	require.Equal(t, int64(77), balance)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves funds and records the transaction", func(t *testing.T) {
		ledger, db := newTestLedger(t)
		from, to := uuid.New(), uuid.New()
		setBalance(t, ledger, from, 100)

		record, err := ledger.Transfer(ctx, TransferInput{
			FromAccountID: from,
			ToAccountID:   to,
			Amount:        60,
			Type:          models.BuzzTransactionTypeBounty,
			Description:   "escrow",
		})
		require.NoError(t, err)
		require.Equal(t, int64(60), record.Amount)

		fromBalance, err := ledger.GetBalance(ctx, from)
		require.NoError(t, err)
		require.Equal(t, int64(40), fromBalance)

		toBalance, err := ledger.GetBalance(ctx, to)
		require.NoError(t, err)
		require.Equal(t, int64(60), toBalance)

		count, err := db.NewSelect().Model((*models.BuzzTransaction)(nil)).Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("debit is refused when the balance does not cover it", func(t *testing.T) {
		ledger, db := newTestLedger(t)
		from, to := uuid.New(), uuid.New()
		setBalance(t, ledger, from, 30)

		_, err := ledger.Transfer(ctx, TransferInput{
			FromAccountID: from,
			ToAccountID:   to,
			Amount:        31,
			Type:          models.BuzzTransactionTypeBounty,
		})
		require.ErrorIs(t, err, ErrInsufficientFunds)

		balance, err := ledger.GetBalance(ctx, from)
		require.NoError(t, err)
		require.Equal(t, int64(30), balance)

		count, err := db.NewSelect().Model((*models.BuzzTransaction)(nil)).Count(ctx)
		require.NoError(t, err)
		require.Zero(t, count)
	})

	t.Run("non-positive amounts are rejected", func(t *testing.T) {
		ledger, _ := newTestLedger(t)

		_, err := ledger.Transfer(ctx, TransferInput{Amount: 0})
		require.ErrorIs(t, err, ErrInvalidAmount)
		_, err = ledger.Transfer(ctx, TransferInput{Amount: -5})
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("joins an enclosing transaction", func(t *testing.T) {
		ledger, db := newTestLedger(t)
		from, to := uuid.New(), uuid.New()
		setBalance(t, ledger, from, 100)

		boom := errors.New("abort")
		err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			if _, err := ledger.WithTx(tx).Transfer(ctx, TransferInput{
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        100,
				Type:          models.BuzzTransactionTypeBounty,
			}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		// The rollback restored the debit
		balance, err := ledger.GetBalance(ctx, from)
		require.NoError(t, err)
		require.Equal(t, int64(100), balance)

		count, err := db.NewSelect().Model((*models.BuzzTransaction)(nil)).Count(ctx)
		require.NoError(t, err)
		require.Zero(t, count)
	})
}

func TestEnsureAccount(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, ledger.EnsureAccount(ctx, id))
	// Re-ensuring an existing account keeps its balance
	setBalance(t, ledger, id, 42)
	require.NoError(t, ledger.EnsureAccount(ctx, id))

	var account models.BuzzAccount
	require.NoError(t, db.NewSelect().Model(&account).Where("id = ?", id).Scan(ctx))
	require.Equal(t, int64(42), account.Balance)
}
