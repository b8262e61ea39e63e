package models

import "github.com/uptrace/bun"

type Timeframe string

const (
	TimeframeDay     Timeframe = "Day"
	TimeframeWeek    Timeframe = "Week"
	TimeframeMonth   Timeframe = "Month"
	TimeframeYear    Timeframe = "Year"
	TimeframeAllTime Timeframe = "AllTime"
)

// BountyRank holds denormalized rank positions per rolling timeframe,
// refreshed out-of-band by the metrics pipeline. Lower rank = better.
type BountyRank struct {
	bun.BaseModel `bun:"table:bounty_ranks,alias:br"`

	BountyID            int64     `bun:",pk"`
	Timeframe           Timeframe `bun:",pk"`
	UnitAmountCountRank int       `bun:",nullzero"`
	EntryCountRank      int       `bun:",nullzero"`
	CommentCountRank    int       `bun:",nullzero"`
	FavoriteCountRank   int       `bun:",nullzero"`
	TrackCountRank      int       `bun:",nullzero"`
	BenefactorCountRank int       `bun:",nullzero"`
}
