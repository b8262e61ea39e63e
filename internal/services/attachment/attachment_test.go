package attachment

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/artfundry/bounty-server/internal/config"
	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/artfundry/bounty-server/internal/services/filestorage"
	"github.com/artfundry/bounty-server/internal/services/fileuploader"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"
)

func newAttachmentTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, table := range []interface{}{(*models.EntityFile)(nil), (*models.EntityImage)(nil)} {
		_, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newLocalUploader(t *testing.T) *fileuploader.Uploader {
	t.Helper()

	storage, err := filestorage.NewLocalFileStorage(&config.Config{
		Host:      "localhost",
		Port:      8881,
		AssetsDir: t.TempDir(),
		TempDir:   t.TempDir(),
	})
	require.NoError(t, err)

	uploader := fileuploader.NewFileUploader(storage, 2)
	t.Cleanup(uploader.Stop)
	return uploader
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func TestReplaceFiles(t *testing.T) {
	db := newAttachmentTestDB(t)
	svc := NewService(nil, zap.NewNop())
	ctx := context.Background()

	first, err := svc.ReplaceFiles(ctx, db, 1, models.EntityTypeBounty, []FileInput{
		{Name: "model.safetensors", Url: "https://cdn.example.com/model.safetensors", SizeKB: 2048},
		{Name: "readme.txt", Url: "https://cdn.example.com/readme.txt"},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Replacement is wholesale: the old set is gone
	second, err := svc.ReplaceFiles(ctx, db, 1, models.EntityTypeBounty, []FileInput{
		{Name: "v2.safetensors", Url: "https://cdn.example.com/v2.safetensors"},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)

	files, err := svc.Files(ctx, db, 1, models.EntityTypeBounty)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "v2.safetensors", files[0].Name)

	// Files scoped to another entity are untouched
	_, err = svc.ReplaceFiles(ctx, db, 2, models.EntityTypeBounty, []FileInput{
		{Name: "other.zip", Url: "https://cdn.example.com/other.zip"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFiles(ctx, db, 1, models.EntityTypeBounty))
	files, err = svc.Files(ctx, db, 1, models.EntityTypeBounty)
	require.NoError(t, err)
	require.Empty(t, files)

	others, err := svc.Files(ctx, db, 2, models.EntityTypeBounty)
	require.NoError(t, err)
	require.Len(t, others, 1)
}

func TestReplaceFiles_RequiresUrlOrContent(t *testing.T) {
	db := newAttachmentTestDB(t)
	svc := NewService(nil, zap.NewNop())

	_, err := svc.ReplaceFiles(context.Background(), db, 1, models.EntityTypeBounty, []FileInput{
		{Name: "empty.bin"},
	})
	require.Error(t, err)
}

func TestAttachImages_UrlOnlyStaysPending(t *testing.T) {
	db := newAttachmentTestDB(t)
	svc := NewService(nil, zap.NewNop())
	ctx := context.Background()

	rows, err := svc.AttachImages(ctx, db, 7, models.EntityTypeBounty, uuid.New(), []ImageInput{
		{Url: "https://cdn.example.com/preview.png"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, models.ImageIngestionPending, rows[0].Ingestion)

	images, err := svc.Images(ctx, db, 7, models.EntityTypeBounty)
	require.NoError(t, err)
	require.Len(t, images, 1)
}

func TestAttachImages_ContentIsIngested(t *testing.T) {
	db := newAttachmentTestDB(t)
	svc := NewService(newLocalUploader(t), zap.NewNop())
	ctx := context.Background()

	rows, err := svc.AttachImages(ctx, db, 7, models.EntityTypeBounty, uuid.New(), []ImageInput{
		{Content: pngBytes(t, 600, 300)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, models.ImageIngestionScanned, row.Ingestion)
	require.Equal(t, 600, row.Width)
	require.Equal(t, 300, row.Height)
	require.NotEmpty(t, row.Url)
	require.NotEmpty(t, row.ThumbUrl)
}

func TestImagesForEntities(t *testing.T) {
	db := newAttachmentTestDB(t)
	svc := NewService(nil, zap.NewNop())
	ctx := context.Background()

	rows := []models.EntityImage{
		{ID: uuid.New(), EntityID: 1, EntityType: models.EntityTypeBounty, UserID: uuid.New(), Url: "https://cdn.example.com/a.png", Ingestion: models.ImageIngestionScanned},
		{ID: uuid.New(), EntityID: 1, EntityType: models.EntityTypeBounty, UserID: uuid.New(), Url: "https://cdn.example.com/b.png", Ingestion: models.ImageIngestionScanned},
		{ID: uuid.New(), EntityID: 1, EntityType: models.EntityTypeBounty, UserID: uuid.New(), Url: "https://cdn.example.com/raw.png", Ingestion: models.ImageIngestionPending},
		{ID: uuid.New(), EntityID: 2, EntityType: models.EntityTypeBounty, UserID: uuid.New(), Url: "https://cdn.example.com/c.png", Ingestion: models.ImageIngestionScanned},
		{ID: uuid.New(), EntityID: 3, EntityType: models.EntityTypeBounty, UserID: uuid.New(), Url: "https://cdn.example.com/d.png", Ingestion: models.ImageIngestionBlocked},
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	require.NoError(t, err)

	grouped, err := svc.ImagesForEntities(ctx, db, []int64{1, 2, 3, 99}, models.EntityTypeBounty)
	require.NoError(t, err)

	// Only scanned images come back, grouped by entity
	require.Len(t, grouped[1], 2)
	require.Len(t, grouped[2], 1)
	require.Empty(t, grouped[3])
	require.Empty(t, grouped[99])

	empty, err := svc.ImagesForEntities(ctx, db, nil, models.EntityTypeBounty)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestProbeImage(t *testing.T) {
	width, height, err := ProbeImage(pngBytes(t, 64, 48))
	require.NoError(t, err)
	require.Equal(t, 64, width)
	require.Equal(t, 48, height)

	_, _, err = ProbeImage([]byte("not an image"))
	require.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	// Larger than the cap: scaled down, aspect preserved
	thumb, err := Thumbnail(pngBytes(t, 900, 450), 450)
	require.NoError(t, err)

	width, height, err := ProbeImage(thumb)
	require.NoError(t, err)
	require.Equal(t, 450, width)
	require.Equal(t, 225, height)

	// Already small enough: dimensions unchanged
	thumb, err = Thumbnail(pngBytes(t, 100, 50), 450)
	require.NoError(t, err)
	width, height, err = ProbeImage(thumb)
	require.NoError(t, err)
	require.Equal(t, 100, width)
	require.Equal(t, 50, height)
}
