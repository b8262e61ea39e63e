package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BountyEntry is a participant's submission against a bounty.
type BountyEntry struct {
	bun.BaseModel `bun:"table:bounty_entries,alias:be"`

	ID          int64        `bun:",pk,autoincrement"`
	BountyID    int64        `bun:",notnull"`
	UserID      uuid.UUID    `bun:",type:uuid,notnull"`
	Description string       `bun:",nullzero"`
	CreatedAt   bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}
