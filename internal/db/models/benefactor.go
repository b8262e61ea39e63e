package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BountyBenefactor records a user's cumulative contribution toward a bounty.
// A user has at most one row per bounty; top-ups add to unit_amount.
type BountyBenefactor struct {
	bun.BaseModel `bun:"table:bounty_benefactors,alias:bb"`

	BountyID         int64        `bun:",pk"`
	UserID           uuid.UUID    `bun:",pk,type:uuid"`
	UnitAmount       int64        `bun:",notnull"`
	Currency         Currency     `bun:",notnull,default:'BUZZ'"`
	AwardedToEntryID *int64       `bun:",nullzero"`
	CreatedAt        bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}
