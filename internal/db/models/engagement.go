package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type EngagementType string

const (
	EngagementTypeFavorite EngagementType = "Favorite"
	EngagementTypeTrack    EngagementType = "Track"
)

type BountyEngagement struct {
	bun.BaseModel `bun:"table:bounty_engagements,alias:beng"`

	UserID    uuid.UUID      `bun:",pk,type:uuid"`
	BountyID  int64          `bun:",pk"`
	Type      EngagementType `bun:",pk"`
	CreatedAt bun.NullTime   `bun:",nullzero,notnull,default:current_timestamp"`
}
