package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EntityType discriminates polymorphic attachment rows.
const (
	EntityTypeBounty      = "Bounty"
	EntityTypeBountyEntry = "BountyEntry"
)

type ImageIngestionStatus string

const (
	ImageIngestionPending ImageIngestionStatus = "Pending"
	ImageIngestionScanned ImageIngestionStatus = "Scanned"
	ImageIngestionBlocked ImageIngestionStatus = "Blocked"
)

// EntityFile is a downloadable attachment keyed by (entity_id, entity_type).
// The owning entity only references these rows; replacement is wholesale.
type EntityFile struct {
	bun.BaseModel `bun:"table:entity_files,alias:ef"`

	ID         uuid.UUID       `bun:",pk,type:uuid"`
	EntityID   int64           `bun:",notnull"`
	EntityType string          `bun:",notnull"`
	Name       string          `bun:",notnull"`
	Url        string          `bun:",notnull"`
	SizeKB     int64           `bun:",nullzero"`
	Metadata   json.RawMessage `bun:",nullzero"`
	CreatedAt  bun.NullTime    `bun:",nullzero,notnull,default:current_timestamp"`
}

// EntityImage is a display image connection. Ingestion (scanning, blocking)
// is driven by the attachment service after the row exists.
type EntityImage struct {
	bun.BaseModel `bun:"table:entity_images,alias:ei"`

	ID         uuid.UUID            `bun:",pk,type:uuid"`
	EntityID   int64                `bun:",notnull"`
	EntityType string               `bun:",notnull"`
	UserID     uuid.UUID            `bun:",type:uuid,notnull"`
	Url        string               `bun:",notnull"`
	ThumbUrl   string               `bun:",nullzero"`
	Width      int                  `bun:",nullzero"`
	Height     int                  `bun:",nullzero"`
	Ingestion  ImageIngestionStatus `bun:",notnull,default:'Pending'"`
	CreatedAt  bun.NullTime         `bun:",nullzero,notnull,default:current_timestamp"`
}
