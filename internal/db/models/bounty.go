package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BountyType string

const (
	BountyTypeModelCreation   BountyType = "ModelCreation"
	BountyTypeLoraCreation    BountyType = "LoraCreation"
	BountyTypeEmbedCreation   BountyType = "EmbedCreation"
	BountyTypeDataSetCreation BountyType = "DataSetCreation"
	BountyTypeDataSetCaption  BountyType = "DataSetCaption"
	BountyTypeImageCreation   BountyType = "ImageCreation"
	BountyTypeVideoCreation   BountyType = "VideoCreation"
	BountyTypeOther           BountyType = "Other"
)

type BountyMode string

const (
	BountyModeIndividual BountyMode = "Individual"
	BountyModeSplit      BountyMode = "Split"
)

type BountyEntryMode string

const (
	BountyEntryModeOpen            BountyEntryMode = "Open"
	BountyEntryModeBenefactorsOnly BountyEntryMode = "BenefactorsOnly"
)

type Bounty struct {
	bun.BaseModel `bun:"table:bounties,alias:b"`

	ID                      int64           `bun:",pk,autoincrement"`
	UserID                  uuid.UUID       `bun:",type:uuid,notnull"`
	Name                    string          `bun:",notnull"`
	Description             string          `bun:",notnull"`
	Details                 json.RawMessage `bun:",nullzero"`
	Type                    BountyType      `bun:",notnull"`
	Mode                    BountyMode      `bun:",notnull,default:'Individual'"`
	EntryMode               BountyEntryMode `bun:",notnull,default:'BenefactorsOnly'"`
	EntryLimit              int             `bun:",notnull,default:1"`
	MinBenefactorUnitAmount int64           `bun:",notnull"`
	Nsfw                    bool            `bun:",notnull,default:false"`
	StartsAt                bun.NullTime    `bun:",notnull"`
	ExpiresAt               bun.NullTime    `bun:",notnull"`
	Complete                bool            `bun:",notnull,default:false"`
	CreatedAt               bun.NullTime    `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt               bun.NullTime    `bun:",nullzero,notnull,default:current_timestamp"`

	Tags        []Tag              `bun:"m2m:bounty_tags,join:Bounty=Tag"`
	Benefactors []BountyBenefactor `bun:"rel:has-many,join:id=bounty_id"`
}

// BountyDetails is the typed shape of the free-form details document. Only
// the fields the server itself reads are declared; everything else rides
// along untouched in the raw JSON.
type BountyDetails struct {
	BaseModel string `json:"baseModel,omitempty"`
}

// DecodedDetails materializes the details document, returning nil when the
// bounty has none.
func (b *Bounty) DecodedDetails() (*BountyDetails, error) {
	if len(b.Details) == 0 {
		return nil, nil
	}

	var details BountyDetails
	if err := json.Unmarshal(b.Details, &details); err != nil {
		return nil, err
	}

	return &details, nil
}
