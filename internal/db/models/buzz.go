package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Currency string

const (
	CurrencyBuzz Currency = "BUZZ"
	CurrencyUSD  Currency = "USD"
)

type BuzzTransactionType string

const (
	BuzzTransactionTypeBounty BuzzTransactionType = "Bounty"
	BuzzTransactionTypeRefund BuzzTransactionType = "Refund"
	BuzzTransactionTypeTip    BuzzTransactionType = "Tip"
)

// EscrowAccountID is the platform-held account that receives bounty
// contributions until they are awarded or refunded.
var EscrowAccountID = uuid.Nil

// BuzzAccount is a per-user balance in the platform's virtual currency.
// Account ids coincide with user ids; the zero uuid is the escrow account.
type BuzzAccount struct {
	bun.BaseModel `bun:"table:buzz_accounts,alias:ba"`

	ID        uuid.UUID    `bun:",pk,type:uuid"`
	Balance   int64        `bun:",notnull,default:0"`
	UpdatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}

// BuzzTransaction is an immutable ledger entry. Rows are only ever inserted.
type BuzzTransaction struct {
	bun.BaseModel `bun:"table:buzz_transactions,alias:btx"`

	ID            uuid.UUID           `bun:",pk,type:uuid"`
	FromAccountID uuid.UUID           `bun:",type:uuid,notnull"`
	ToAccountID   uuid.UUID           `bun:",type:uuid,notnull"`
	Amount        int64               `bun:",notnull"`
	Type          BuzzTransactionType `bun:",notnull"`
	Description   string              `bun:",nullzero"`
	CreatedAt     bun.NullTime        `bun:",nullzero,notnull,default:current_timestamp"`
}
