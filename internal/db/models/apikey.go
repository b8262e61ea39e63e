package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type APIKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:ak"`

	ID        uuid.UUID    `bun:",pk,type:uuid"`
	UserID    uuid.UUID    `bun:",type:uuid,notnull"`
	KeyHash   string       `bun:",notnull"`
	KeyMask   string       `bun:",notnull"`
	IsRevoked bool         `bun:",notnull,default:false"`
	CreatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}

func NewAPIKey(userID uuid.UUID, keyHash, keyMask string) *APIKey {
	return &APIKey{
		ID:      uuid.Must(uuid.NewRandom()),
		UserID:  userID,
		KeyHash: keyHash,
		KeyMask: keyMask,
	}
}
