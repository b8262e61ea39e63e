package bounty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type BountyStatus string

const (
	BountyStatusOpen    BountyStatus = "Open"
	BountyStatusExpired BountyStatus = "Expired"
	BountyStatusAwarded BountyStatus = "Awarded"
)

type BountySort string

const (
	SortNewest           BountySort = "Newest"
	SortEndingSoon       BountySort = "EndingSoon"
	SortHighestFunded    BountySort = "HighestFunded"
	SortMostContributors BountySort = "MostContributors"
	SortMostDiscussed    BountySort = "MostDiscussed"
	SortMostLiked        BountySort = "MostLiked"
	SortMostTracked      BountySort = "MostTracked"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// Bounties with no precomputed rank sort behind everything ranked.
	unrankedSentinel = 999999999
)

// BountyFilter narrows and orders a listing. The engagement facets
// (Favorited, Tracked, Supporting, Awarded) require UserID to be set.
type BountyFilter struct {
	Query      string
	Types      []models.BountyType
	Mode       *models.BountyMode
	Status     *BountyStatus
	Period     models.Timeframe
	BaseModels []string

	UserID     uuid.UUID
	Favorited  bool
	Tracked    bool
	Supporting bool
	Awarded    bool

	Sort   BountySort
	Cursor *int64
	Limit  int
}

// sortSpec describes the secondary ordering. The primary sort is always
// complete ascending so open bounties surface first.
type sortSpec struct {
	expr       string
	desc       bool
	rankJoined bool
}

func sortSpecFor(sort BountySort) sortSpec {
	rank := func(column string) sortSpec {
		return sortSpec{
			expr:       fmt.Sprintf("COALESCE(br.%s, %d)", column, unrankedSentinel),
			rankJoined: true,
		}
	}

	switch sort {
	case SortEndingSoon:
		return sortSpec{expr: "b.expires_at"}
	case SortHighestFunded:
		return rank("unit_amount_count_rank")
	case SortMostContributors:
		return rank("entry_count_rank")
	case SortMostDiscussed:
		return rank("comment_count_rank")
	case SortMostLiked:
		return rank("favorite_count_rank")
	case SortMostTracked:
		return rank("track_count_rank")
	default:
		return sortSpec{expr: "b.created_at", desc: true}
	}
}

// List returns one page of bounties and the cursor for the next page, nil
// when the listing is exhausted. The cursor is the last-seen bounty id; the
// page picks up strictly after that row in the current ordering.
func (s *Service) List(ctx context.Context, filter BountyFilter) ([]models.Bounty, *int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	timeframe := filter.Period
	if timeframe == "" {
		timeframe = models.TimeframeAllTime
	}

	spec := sortSpecFor(filter.Sort)

	var bounties []models.Bounty
	q := s.db.NewSelect().Model(&bounties).Relation("Tags")
	if spec.rankJoined {
		q = q.Join("LEFT JOIN bounty_ranks AS br ON br.bounty_id = b.id AND br.timeframe = ?", timeframe)
	}

	q, err := s.applyFilters(q, filter)
	if err != nil {
		return nil, nil, err
	}

	if filter.Cursor != nil {
		q, err = s.applyCursor(ctx, q, spec, timeframe, *filter.Cursor)
		if err != nil {
			return nil, nil, err
		}
	}

	direction := "ASC"
	if spec.desc {
		direction = "DESC"
	}
	q = q.
		OrderExpr("b.complete ASC").
		OrderExpr(spec.expr + " " + direction).
		OrderExpr("b.id ASC").
		Limit(limit)

	if err := q.Scan(ctx); err != nil {
		return nil, nil, err
	}

	var next *int64
	if len(bounties) == limit {
		last := bounties[len(bounties)-1].ID
		next = &last
	}

	return bounties, next, nil
}

func (s *Service) applyFilters(q *bun.SelectQuery, filter BountyFilter) (*bun.SelectQuery, error) {
	if filter.Query != "" {
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		q = q.Where("LOWER(b.name) LIKE ?", pattern)
	}

	if len(filter.Types) > 0 {
		q = q.Where("b.type IN (?)", bun.In(filter.Types))
	}

	if filter.Mode != nil {
		q = q.Where("b.mode = ?", *filter.Mode)
	}

	if filter.Status != nil {
		now := time.Now()
		switch *filter.Status {
		case BountyStatusOpen:
			q = q.Where("b.complete = ?", false).Where("b.expires_at > ?", now)
		case BountyStatusExpired:
			q = q.Where("b.expires_at <= ?", now)
		case BountyStatusAwarded:
			q = q.Where("b.complete = ?", true)
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, *filter.Status)
		}
	}

	if cutoff, ok := periodCutoff(filter.Period, time.Now()); ok {
		q = q.Where("b.created_at >= ?", cutoff)
	}

	if len(filter.BaseModels) > 0 {
		q = q.Where(s.baseModelExpr()+" IN (?)", bun.In(filter.BaseModels))
	}

	needsUser := filter.Favorited || filter.Tracked || filter.Supporting || filter.Awarded
	if needsUser && filter.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: engagement filters require a user", ErrBadRequest)
	}

	if filter.Favorited {
		q = q.Where("EXISTS (SELECT 1 FROM bounty_engagements WHERE bounty_id = b.id AND user_id = ? AND type = ?)",
			filter.UserID, models.EngagementTypeFavorite)
	}
	if filter.Tracked {
		q = q.Where("EXISTS (SELECT 1 FROM bounty_engagements WHERE bounty_id = b.id AND user_id = ? AND type = ?)",
			filter.UserID, models.EngagementTypeTrack)
	}
	if filter.Supporting {
		q = q.Where("EXISTS (SELECT 1 FROM bounty_benefactors WHERE bounty_id = b.id AND user_id = ?)", filter.UserID)
	}
	if filter.Awarded {
		q = q.Where(`EXISTS (
			SELECT 1 FROM bounty_benefactors bbf
			JOIN bounty_entries bent ON bent.id = bbf.awarded_to_entry_id
			WHERE bbf.bounty_id = b.id AND bent.user_id = ?
		)`, filter.UserID)
	}

	return q, nil
}

// applyCursor anchors the page on the last-seen row: the anchor's sort keys
// are read back and the page takes everything strictly after the tuple
// (complete, sort key, id). A vanished anchor means the cursor is stale and
// listing restarts from the top.
func (s *Service) applyCursor(ctx context.Context, q *bun.SelectQuery, spec sortSpec, timeframe models.Timeframe, cursor int64) (*bun.SelectQuery, error) {
	anchor := s.db.NewSelect().
		TableExpr("bounties AS b").
		ColumnExpr("b.complete").
		ColumnExpr(spec.expr).
		Where("b.id = ?", cursor)
	if spec.rankJoined {
		anchor = anchor.Join("LEFT JOIN bounty_ranks AS br ON br.bounty_id = b.id AND br.timeframe = ?", timeframe)
	}

	var complete bool
	var sortVal interface{}
	if spec.rankJoined {
		var rank int64
		if err := anchor.Scan(ctx, &complete, &rank); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return q, nil
			}
			return nil, err
		}
		sortVal = rank
	} else {
		var ts time.Time
		if err := anchor.Scan(ctx, &complete, &ts); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return q, nil
			}
			return nil, err
		}
		sortVal = ts
	}

	cmp := ">"
	if spec.desc {
		cmp = "<"
	}
	condition := fmt.Sprintf(
		"(b.complete > ?) OR (b.complete = ? AND %s %s ?) OR (b.complete = ? AND %s = ? AND b.id > ?)",
		spec.expr, cmp, spec.expr,
	)

	return q.Where(condition, complete, complete, sortVal, complete, sortVal, cursor), nil
}

// baseModelExpr extracts the baseModel field from the semi-structured
// details document, per dialect.
func (s *Service) baseModelExpr() string {
	if s.db.Dialect().Name() == dialect.PG {
		return "b.details->>'baseModel'"
	}

	return "json_extract(b.details, '$.baseModel')"
}

func periodCutoff(period models.Timeframe, now time.Time) (time.Time, bool) {
	switch period {
	case models.TimeframeDay:
		return now.AddDate(0, 0, -1), true
	case models.TimeframeWeek:
		return now.AddDate(0, 0, -7), true
	case models.TimeframeMonth:
		return now.AddDate(0, -1, 0), true
	case models.TimeframeYear:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}
