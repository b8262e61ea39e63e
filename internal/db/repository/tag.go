package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/uptrace/bun"
)

type ITagRepository interface {
	WithTx(tx bun.IDB) ITagRepository
	GetByID(ctx context.Context, id int64) (*models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	// GetOrCreateByName normalizes the name and connects to the existing
	// vocabulary entry, creating one with the given target if absent.
	GetOrCreateByName(ctx context.Context, name string, target models.TagTarget) (*models.Tag, error)
}

type TagRepository struct {
	db bun.IDB
}

func NewTagRepository(db *bun.DB) ITagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) WithTx(tx bun.IDB) ITagRepository {
	return &TagRepository{db: tx}
}

func (r *TagRepository) GetByID(ctx context.Context, id int64) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.NewSelect().Model(&tag).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}

	return &tag, nil
}

func (r *TagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.NewSelect().Model(&tag).Where("name = ?", NormalizeTagName(name)).Scan(ctx); err != nil {
		return nil, err
	}

	return &tag, nil
}

func (r *TagRepository) GetOrCreateByName(ctx context.Context, name string, target models.TagTarget) (*models.Tag, error) {
	normalized := NormalizeTagName(name)

	tag := &models.Tag{Name: normalized, Target: target}
	_, err := r.db.NewInsert().
		Model(tag).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	// The insert reports no id on conflict, so read the row back either way.
	existing, err := r.GetByName(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("tag vanished after connect-or-create")
		}
		return nil, err
	}

	return existing, nil
}

// NormalizeTagName folds a user-supplied tag name into vocabulary form.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
