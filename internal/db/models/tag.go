package models

import (
	"github.com/uptrace/bun"
)

type TagTarget string

const (
	TagTargetBounty TagTarget = "Bounty"
	TagTargetModel  TagTarget = "Model"
	TagTargetImage  TagTarget = "Image"
)

// Tag is the shared vocabulary shared across entity types. Names are stored
// normalized (lowercased, trimmed) and are unique.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID        int64        `bun:",pk,autoincrement"`
	Name      string       `bun:",notnull,unique"`
	Target    TagTarget    `bun:",notnull"`
	CreatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}

type BountyTag struct {
	bun.BaseModel `bun:"table:bounty_tags,alias:bt"`

	BountyID int64   `bun:",pk"`
	TagID    int64   `bun:",pk"`
	Bounty   *Bounty `bun:"rel:belongs-to,join:bounty_id=id"`
	Tag      *Tag    `bun:"rel:belongs-to,join:tag_id=id"`
}
