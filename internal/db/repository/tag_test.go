package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTagTestRepo(t *testing.T) ITagRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.NewCreateTable().Model((*models.Tag)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return NewTagRepository(db)
}

func TestNormalizeTagName(t *testing.T) {
	require.Equal(t, "anime", NormalizeTagName(" Anime "))
	require.Equal(t, "pixel art", NormalizeTagName("Pixel Art"))
	require.Equal(t, "", NormalizeTagName("   "))
}

func TestGetOrCreateByName(t *testing.T) {
	repo := newTagTestRepo(t)
	ctx := context.Background()

	created, err := repo.GetOrCreateByName(ctx, " Anime ", models.TagTargetBounty)
	require.NoError(t, err)
	require.Equal(t, "anime", created.Name)
	require.Equal(t, models.TagTargetBounty, created.Target)
	require.NotZero(t, created.ID)

	// Variant spellings connect to the same vocabulary entry
	same, err := repo.GetOrCreateByName(ctx, "ANIME", models.TagTargetBounty)
	require.NoError(t, err)
	require.Equal(t, created.ID, same.ID)

	byName, err := repo.GetByName(ctx, "Anime")
	require.NoError(t, err)
	require.Equal(t, created.ID, byName.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "anime", byID.Name)
}

func TestGetByID_Missing(t *testing.T) {
	repo := newTagTestRepo(t)

	_, err := repo.GetByID(context.Background(), 12345)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
