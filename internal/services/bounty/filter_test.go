package bounty

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type seedBounty struct {
	name      string
	kind      models.BountyType
	complete  bool
	expiresAt time.Time
	createdAt time.Time
	baseModel string
}

func seed(t *testing.T, db *bun.DB, rows []seedBounty) []int64 {
	t.Helper()
	ctx := context.Background()

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		kind := row.kind
		if kind == "" {
			kind = models.BountyTypeImageCreation
		}
		expires := row.expiresAt
		if expires.IsZero() {
			expires = time.Now().Add(30 * 24 * time.Hour)
		}
		created := row.createdAt
		if created.IsZero() {
			created = time.Now()
		}

		var details json.RawMessage
		if row.baseModel != "" {
			payload, err := json.Marshal(map[string]string{"baseModel": row.baseModel})
			require.NoError(t, err)
			details = payload
		}

		bounty := &models.Bounty{
			UserID:      uuid.New(),
			Name:        row.name,
			Description: "seeded",
			Details:     details,
			Type:        kind,
			Mode:        models.BountyModeIndividual,
			EntryMode:   models.BountyEntryModeBenefactorsOnly,
			EntryLimit:  1,
			Complete:    row.complete,
			StartsAt:    bun.NullTime{Time: created},
			ExpiresAt:   bun.NullTime{Time: expires},
			CreatedAt:   bun.NullTime{Time: created},
			UpdatedAt:   bun.NullTime{Time: created},
		}
		_, err := db.NewInsert().Model(bounty).Returning("*").Exec(ctx)
		require.NoError(t, err)
		ids = append(ids, bounty.ID)
	}

	return ids
}

func names(bounties []models.Bounty) []string {
	out := make([]string, 0, len(bounties))
	for _, b := range bounties {
		out = append(out, b.Name)
	}
	return out
}

func TestList_IncompleteAlwaysFirst(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()

	seed(t, db, []seedBounty{
		{name: "done-old", complete: true, createdAt: now.Add(-1 * time.Hour)},
		{name: "open-old", createdAt: now.Add(-2 * time.Hour)},
		{name: "done-new", complete: true, createdAt: now},
		{name: "open-new", createdAt: now.Add(-1 * time.Minute)},
	})

	for _, sort := range []BountySort{SortNewest, SortEndingSoon, SortMostLiked} {
		bounties, _, err := svc.List(context.Background(), BountyFilter{Sort: sort})
		require.NoError(t, err)
		require.Len(t, bounties, 4)

		sawComplete := false
		for _, b := range bounties {
			if b.Complete {
				sawComplete = true
			} else {
				require.False(t, sawComplete, "incomplete bounty after a complete one under sort %s", sort)
			}
		}
	}
}

func TestList_NewestIsDefault(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()

	seed(t, db, []seedBounty{
		{name: "oldest", createdAt: now.Add(-3 * time.Hour)},
		{name: "middle", createdAt: now.Add(-2 * time.Hour)},
		{name: "newest", createdAt: now.Add(-1 * time.Hour)},
	})

	bounties, _, err := svc.List(context.Background(), BountyFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"newest", "middle", "oldest"}, names(bounties))
}

func TestList_CursorWalksEveryRowOnce(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()

	seed(t, db, []seedBounty{
		{name: "a", createdAt: now.Add(-5 * time.Hour)},
		{name: "b", createdAt: now.Add(-4 * time.Hour)},
		{name: "c", complete: true, createdAt: now.Add(-3 * time.Hour)},
		{name: "d", createdAt: now.Add(-2 * time.Hour)},
		{name: "e", createdAt: now.Add(-1 * time.Hour)},
	})

	var collected []string
	var cursor *int64
	pages := 0
	for {
		bounties, next, err := svc.List(context.Background(), BountyFilter{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		collected = append(collected, names(bounties)...)

		pages++
		require.LessOrEqual(t, pages, 4, "pagination did not terminate")

		if next == nil || len(bounties) == 0 {
			break
		}
		cursor = next
	}

	require.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, collected)
	// Complete bounty lands on the last page
	require.Equal(t, "c", collected[len(collected)-1])
}

func TestList_StatusFilter(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()

	seed(t, db, []seedBounty{
		{name: "open", expiresAt: now.Add(time.Hour)},
		{name: "lapsed", expiresAt: now.Add(-time.Hour)},
		{name: "awarded-lapsed", complete: true, expiresAt: now.Add(-2 * time.Hour)},
		{name: "awarded-live", complete: true, expiresAt: now.Add(2 * time.Hour)},
	})

	cases := map[BountyStatus][]string{
		BountyStatusOpen: {"open"},
		// Expired means past expiry, regardless of completion
		BountyStatusExpired: {"lapsed", "awarded-lapsed"},
		BountyStatusAwarded: {"awarded-lapsed", "awarded-live"},
	}
	for status, want := range cases {
		status := status
		bounties, _, err := svc.List(context.Background(), BountyFilter{Status: &status})
		require.NoError(t, err)
		require.ElementsMatch(t, want, names(bounties))
	}
}

func TestList_TypeAndQueryFilters(t *testing.T) {
	svc, db := newTestService(t)

	seed(t, db, []seedBounty{
		{name: "anime mascot", kind: models.BountyTypeImageCreation},
		{name: "training set", kind: models.BountyTypeDataSetCreation},
		{name: "MASCOT lora", kind: models.BountyTypeLoraCreation},
	})

	bounties, _, err := svc.List(context.Background(), BountyFilter{
		Types: []models.BountyType{models.BountyTypeLoraCreation, models.BountyTypeDataSetCreation},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"training set", "MASCOT lora"}, names(bounties))

	// Substring match is case-insensitive
	bounties, _, err = svc.List(context.Background(), BountyFilter{Query: "mascot"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"anime mascot", "MASCOT lora"}, names(bounties))
}

func TestList_BaseModelFilter(t *testing.T) {
	svc, db := newTestService(t)

	seed(t, db, []seedBounty{
		{name: "sdxl job", baseModel: "SDXL"},
		{name: "flux job", baseModel: "Flux"},
		{name: "untyped job"},
	})

	bounties, _, err := svc.List(context.Background(), BountyFilter{BaseModels: []string{"SDXL"}})
	require.NoError(t, err)
	require.Equal(t, []string{"sdxl job"}, names(bounties))
}

func TestList_RankSort(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	ids := seed(t, db, []seedBounty{
		{name: "third", createdAt: now.Add(-1 * time.Hour)},
		{name: "first", createdAt: now.Add(-2 * time.Hour)},
		{name: "second", createdAt: now.Add(-3 * time.Hour)},
	})

	ranks := []models.BountyRank{
		{BountyID: ids[1], Timeframe: models.TimeframeAllTime, FavoriteCountRank: 1},
		{BountyID: ids[2], Timeframe: models.TimeframeAllTime, FavoriteCountRank: 2},
	}
	_, err := db.NewInsert().Model(&ranks).Exec(ctx)
	require.NoError(t, err)

	bounties, _, err := svc.List(ctx, BountyFilter{Sort: SortMostLiked})
	require.NoError(t, err)
	// Unranked rows sort behind ranked ones
	require.Equal(t, []string{"first", "second", "third"}, names(bounties))
}

func TestList_EngagementFacets(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	fan := uuid.New()

	ids := seed(t, db, []seedBounty{
		{name: "liked"},
		{name: "ignored"},
	})

	require.NoError(t, svc.SetEngagement(ctx, ids[0], fan, models.EngagementTypeFavorite))

	bounties, _, err := svc.List(ctx, BountyFilter{Favorited: true, UserID: fan})
	require.NoError(t, err)
	require.Equal(t, []string{"liked"}, names(bounties))

	// Facets without a user are refused
	_, _, err = svc.List(ctx, BountyFilter{Favorited: true})
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestList_SupportingFacet(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	creator, backer := uuid.New(), uuid.New()
	fundUser(t, db, creator, 100)
	fundUser(t, db, backer, 10)

	created, err := svc.Create(ctx, creator, validInput(100))
	require.NoError(t, err)
	seed(t, db, []seedBounty{{name: "unrelated"}})

	_, err = svc.AddBenefactorUnitAmount(ctx, created.ID, backer, 10)
	require.NoError(t, err)

	bounties, _, err := svc.List(ctx, BountyFilter{Supporting: true, UserID: backer})
	require.NoError(t, err)
	require.Len(t, bounties, 1)
	require.Equal(t, created.ID, bounties[0].ID)
}
