// Package bounty orchestrates the marketplace's financial lifecycle: creation
// with escrow, crowd-funded top-ups, guarded deletion with refund, and the
// association plumbing (tags, files, images) that hangs off each bounty.
package bounty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/artfundry/bounty-server/internal/db/repository"
	"github.com/artfundry/bounty-server/internal/events"
	"github.com/artfundry/bounty-server/internal/services/attachment"
	"github.com/artfundry/bounty-server/internal/services/buzz"
	"github.com/artfundry/bounty-server/internal/services/moderation"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	ErrNotFound   = errors.New("bounty not found")
	ErrBadRequest = errors.New("bad request")

	ErrBountyComplete  = fmt.Errorf("%w: bounty is already complete", ErrBadRequest)
	ErrDeletionBlocked = fmt.Errorf("%w: bounty has other benefactors or entries", ErrBadRequest)

	// ErrInsufficientFunds mirrors the ledger's error so callers only need
	// this package to classify failures.
	ErrInsufficientFunds = buzz.ErrInsufficientFunds
)

// TagRef names a tag either by vocabulary id or by raw name. Name-based refs
// are normalized and connected-or-created against the Bounty vocabulary.
type TagRef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type CreateBountyInput struct {
	Name                    string
	Description             string
	Details                 []byte
	Type                    models.BountyType
	Mode                    models.BountyMode
	EntryMode               models.BountyEntryMode
	EntryLimit              int
	MinBenefactorUnitAmount int64
	Nsfw                    bool
	StartsAt                time.Time
	ExpiresAt               time.Time
	Tags                    []TagRef
	Files                   []attachment.FileInput
	Images                  []attachment.ImageInput
	UnitAmount              int64
	Currency                models.Currency
}

type UpdateBountyInput struct {
	Name                    *string
	Description             *string
	Details                 []byte
	Type                    *models.BountyType
	Mode                    *models.BountyMode
	EntryLimit              *int
	MinBenefactorUnitAmount *int64
	Nsfw                    *bool
	StartsAt                *time.Time
	ExpiresAt               *time.Time
	Complete                *bool
	Tags                    *[]TagRef
	Files                   *[]attachment.FileInput
}

type Params struct {
	DB          *bun.DB
	Ledger      buzz.Ledger
	Tags        repository.ITagRepository
	Attachments *attachment.Service
	Moderation  *moderation.Service
	Events      *events.Publisher
	Logger      *zap.Logger
}

type Service struct {
	db          *bun.DB
	ledger      buzz.Ledger
	tags        repository.ITagRepository
	attachments *attachment.Service
	moderation  *moderation.Service
	events      *events.Publisher
	logger      *zap.Logger
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		ledger:      p.Ledger,
		tags:        p.Tags,
		attachments: p.Attachments,
		moderation:  p.Moderation,
		events:      p.Events,
		logger:      p.Logger,
	}
}

// Create inserts a bounty together with its creator benefactor row, tag and
// attachment associations, and the escrow transfer, all in one transaction.
// The balance is pre-checked so an underfunded request fails before any row
// is written; the ledger re-checks at debit time inside the transaction.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateBountyInput) (*models.Bounty, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	verdict := s.moderation.ScreenText(ctx, input.Name, input.Description)
	if verdict.Flagged {
		if !verdict.Nsfw {
			return nil, fmt.Errorf("%w: content rejected by moderation (%s)", ErrBadRequest, verdict.Category)
		}
		input.Nsfw = true
	}

	policy := policyFor(input.Currency)
	if err := policy.CheckFunds(ctx, s.ledger, userID, input.UnitAmount); err != nil {
		return nil, err
	}

	bounty := &models.Bounty{
		UserID:                  userID,
		Name:                    input.Name,
		Description:             input.Description,
		Details:                 input.Details,
		Type:                    input.Type,
		Mode:                    input.Mode,
		EntryMode:               models.BountyEntryModeBenefactorsOnly,
		EntryLimit:              input.EntryLimit,
		MinBenefactorUnitAmount: input.MinBenefactorUnitAmount,
		Nsfw:                    input.Nsfw,
		StartsAt:                bun.NullTime{Time: input.StartsAt},
		ExpiresAt:               bun.NullTime{Time: input.ExpiresAt},
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(bounty).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert bounty: %w", err)
		}

		tags, err := s.syncTags(ctx, tx, bounty.ID, input.Tags)
		if err != nil {
			return err
		}
		bounty.Tags = tags

		benefactor := &models.BountyBenefactor{
			BountyID:   bounty.ID,
			UserID:     userID,
			UnitAmount: input.UnitAmount,
			Currency:   input.Currency,
		}
		if _, err := tx.NewInsert().Model(benefactor).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert creator benefactor: %w", err)
		}
		bounty.Benefactors = []models.BountyBenefactor{*benefactor}

		if len(input.Files) > 0 {
			if _, err := s.attachments.ReplaceFiles(ctx, tx, bounty.ID, models.EntityTypeBounty, input.Files); err != nil {
				return err
			}
		}
		if len(input.Images) > 0 {
			if _, err := s.attachments.AttachImages(ctx, tx, bounty.ID, models.EntityTypeBounty, userID, input.Images); err != nil {
				return err
			}
		}

		description := fmt.Sprintf("escrow for bounty %d", bounty.ID)
		return policy.Collect(ctx, s.ledger.WithTx(tx), userID, input.UnitAmount, description)
	})
	if err != nil {
		return nil, err
	}

	s.events.BountyCreated(ctx, events.BountyCreated{
		BountyID:   bounty.ID,
		UserID:     userID,
		Name:       bounty.Name,
		Type:       string(bounty.Type),
		UnitAmount: input.UnitAmount,
		CreatedAt:  time.Now().UTC(),
	})

	return bounty, nil
}

// AddBenefactorUnitAmount applies a contribution on top of whatever the user
// has already put in. The ledger transfer and the benefactor upsert are two
// separate steps; a crash in between leaves funds in escrow without a
// matching benefactor increment, which reconciliation has to repair.
func (s *Service) AddBenefactorUnitAmount(ctx context.Context, bountyID int64, userID uuid.UUID, unitAmount int64) (*models.BountyBenefactor, error) {
	if unitAmount <= 0 {
		return nil, fmt.Errorf("%w: unit amount must be positive", ErrBadRequest)
	}

	bounty, err := s.getBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if bounty.Complete {
		return nil, ErrBountyComplete
	}

	currency := models.CurrencyBuzz
	var existing models.BountyBenefactor
	err = s.db.NewSelect().
		Model(&existing).
		Where("bounty_id = ? AND user_id = ?", bountyID, userID).
		Scan(ctx)
	switch {
	case err == nil:
		currency = existing.Currency
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	policy := policyFor(currency)
	if err := policy.CheckFunds(ctx, s.ledger, userID, unitAmount); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("contribution to bounty %d", bountyID)
	if err := policy.Collect(ctx, s.ledger, userID, unitAmount, description); err != nil {
		return nil, err
	}

	row := &models.BountyBenefactor{
		BountyID:   bountyID,
		UserID:     userID,
		UnitAmount: unitAmount,
		Currency:   currency,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (bounty_id, user_id) DO UPDATE").
		Set("unit_amount = bb.unit_amount + EXCLUDED.unit_amount").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert benefactor: %w", err)
	}

	if err := s.db.NewSelect().
		Model(row).
		Where("bounty_id = ? AND user_id = ?", bountyID, userID).
		Scan(ctx); err != nil {
		return nil, err
	}

	s.events.BountyFunded(ctx, events.BountyFunded{
		BountyID:    bountyID,
		UserID:      userID,
		UnitAmount:  unitAmount,
		TotalAmount: row.UnitAmount,
		FundedAt:    time.Now().UTC(),
	})

	return row, nil
}

// Update patches bounty metadata and re-syncs associations. A missing bounty
// is reported as a nil result, not an error, so callers can distinguish
// "gone" from "failed".
func (s *Service) Update(ctx context.Context, id int64, input UpdateBountyInput) (*models.Bounty, error) {
	bounty, err := s.getBounty(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	applyUpdate(bounty, input)
	if bounty.ExpiresAt.Time.Before(bounty.StartsAt.Time) || bounty.ExpiresAt.Time.Equal(bounty.StartsAt.Time) {
		return nil, fmt.Errorf("%w: expiry must be after start", ErrBadRequest)
	}

	if input.Name != nil || input.Description != nil {
		verdict := s.moderation.ScreenText(ctx, bounty.Name, bounty.Description)
		if verdict.Flagged {
			if !verdict.Nsfw {
				return nil, fmt.Errorf("%w: content rejected by moderation (%s)", ErrBadRequest, verdict.Category)
			}
			bounty.Nsfw = true
		}
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		bounty.UpdatedAt = bun.NullTime{Time: time.Now().UTC()}
		res, err := tx.NewUpdate().
			Model(bounty).
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update bounty: %w", err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return err
		} else if affected == 0 {
			return ErrNotFound
		}

		if input.Tags != nil {
			tags, err := s.syncTags(ctx, tx, id, *input.Tags)
			if err != nil {
				return err
			}
			bounty.Tags = tags
		}

		if input.Files != nil {
			if _, err := s.attachments.ReplaceFiles(ctx, tx, id, models.EntityTypeBounty, *input.Files); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return bounty, nil
}

// Delete removes a bounty that carries no outside commitment: any benefactor
// other than the owner, or any submitted entry, blocks it. After the delete
// commits, the owner's original contribution is refunded from escrow.
func (s *Service) Delete(ctx context.Context, id int64) (*models.Bounty, error) {
	bounty, err := s.getBounty(ctx, id)
	if err != nil {
		return nil, err
	}

	others, err := s.db.NewSelect().
		Model((*models.BountyBenefactor)(nil)).
		Where("bounty_id = ? AND user_id != ?", id, bounty.UserID).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.db.NewSelect().
		Model((*models.BountyEntry)(nil)).
		Where("bounty_id = ?", id).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	if others > 0 || entries > 0 {
		return nil, ErrDeletionBlocked
	}

	// Read the owner's contribution before the delete wipes it; the refund
	// below needs the amount and currency.
	var owner models.BountyBenefactor
	hasOwnerRow := true
	err = s.db.NewSelect().
		Model(&owner).
		Where("bounty_id = ? AND user_id = ?", id, bounty.UserID).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		hasOwnerRow = false
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.BountyBenefactor)(nil)).Where("bounty_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.BountyTag)(nil)).Where("bounty_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.BountyEngagement)(nil)).Where("bounty_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if err := s.attachments.DeleteFiles(ctx, tx, id, models.EntityTypeBounty); err != nil {
			return err
		}

		res, err := tx.NewDelete().Model((*models.Bounty)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err != nil {
			return err
		} else if affected == 0 {
			return ErrNotFound
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.BountyDeleted(ctx, events.BountyDeleted{
		BountyID:  id,
		UserID:    bounty.UserID,
		DeletedAt: time.Now().UTC(),
	})

	if hasOwnerRow {
		policy := policyFor(owner.Currency)
		if err := policy.Refund(ctx, s.ledger, bounty.UserID, owner.UnitAmount, "owner deleted bounty"); err != nil {
			// The bounty is gone either way; surface the stranded escrow.
			return nil, fmt.Errorf("bounty deleted but refund failed: %w", err)
		}

		s.events.BountyRefunded(ctx, events.BountyRefunded{
			BountyID:   id,
			UserID:     bounty.UserID,
			UnitAmount: owner.UnitAmount,
			RefundedAt: time.Now().UTC(),
		})
	}

	return bounty, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Bounty, error) {
	var bounty models.Bounty
	err := s.db.NewSelect().
		Model(&bounty).
		Relation("Tags").
		Relation("Benefactors").
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &bounty, nil
}

func (s *Service) GetFiles(ctx context.Context, id int64) ([]models.EntityFile, error) {
	return s.attachments.Files(ctx, s.db, id, models.EntityTypeBounty)
}

func (s *Service) GetImages(ctx context.Context, id int64) ([]models.EntityImage, error) {
	return s.attachments.Images(ctx, s.db, id, models.EntityTypeBounty)
}

// GetImagesForBounties batch-loads the scanned images for a page of bounties,
// keyed by bounty id.
func (s *Service) GetImagesForBounties(ctx context.Context, ids []int64) (map[int64][]models.EntityImage, error) {
	return s.attachments.ImagesForEntities(ctx, s.db, ids, models.EntityTypeBounty)
}

// CreateEntry records a submission. Benefactors-only bounties require the
// submitter to have contributed; the per-user entry limit is enforced here.
func (s *Service) CreateEntry(ctx context.Context, bountyID int64, userID uuid.UUID, description string) (*models.BountyEntry, error) {
	bounty, err := s.getBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if bounty.Complete {
		return nil, ErrBountyComplete
	}
	if !bounty.ExpiresAt.Time.IsZero() && bounty.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("%w: bounty has expired", ErrBadRequest)
	}

	if bounty.EntryMode == models.BountyEntryModeBenefactorsOnly {
		supporting, err := s.db.NewSelect().
			Model((*models.BountyBenefactor)(nil)).
			Where("bounty_id = ? AND user_id = ?", bountyID, userID).
			Count(ctx)
		if err != nil {
			return nil, err
		}
		if supporting == 0 {
			return nil, fmt.Errorf("%w: only benefactors may submit entries", ErrBadRequest)
		}
	}

	if bounty.EntryLimit > 0 {
		submitted, err := s.db.NewSelect().
			Model((*models.BountyEntry)(nil)).
			Where("bounty_id = ? AND user_id = ?", bountyID, userID).
			Count(ctx)
		if err != nil {
			return nil, err
		}
		if submitted >= bounty.EntryLimit {
			return nil, fmt.Errorf("%w: entry limit reached", ErrBadRequest)
		}
	}

	entry := &models.BountyEntry{
		BountyID:    bountyID,
		UserID:      userID,
		Description: description,
	}
	if _, err := s.db.NewInsert().Model(entry).Returning("*").Exec(ctx); err != nil {
		return nil, err
	}

	return entry, nil
}

// SetEngagement records a favorite or track mark; repeats are no-ops.
func (s *Service) SetEngagement(ctx context.Context, bountyID int64, userID uuid.UUID, kind models.EngagementType) error {
	if _, err := s.getBounty(ctx, bountyID); err != nil {
		return err
	}

	row := &models.BountyEngagement{
		BountyID: bountyID,
		UserID:   userID,
		Type:     kind,
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, bounty_id, type) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Service) RemoveEngagement(ctx context.Context, bountyID int64, userID uuid.UUID, kind models.EngagementType) error {
	_, err := s.db.NewDelete().
		Model((*models.BountyEngagement)(nil)).
		Where("bounty_id = ? AND user_id = ? AND type = ?", bountyID, userID, kind).
		Exec(ctx)
	return err
}

func (s *Service) getBounty(ctx context.Context, id int64) (*models.Bounty, error) {
	var bounty models.Bounty
	err := s.db.NewSelect().Model(&bounty).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &bounty, nil
}

// syncTags makes the bounty's association set equal exactly the desired refs.
// Name refs are normalized and deduplicated before resolution, so "Anime" and
// " anime " collapse into one vocabulary entry.
func (s *Service) syncTags(ctx context.Context, tx bun.IDB, bountyID int64, refs []TagRef) ([]models.Tag, error) {
	tagRepo := s.tags.WithTx(tx)

	resolved := make([]models.Tag, 0, len(refs))
	seen := make(map[int64]struct{}, len(refs))
	for _, ref := range refs {
		var tag *models.Tag
		var err error
		switch {
		case ref.ID != 0:
			tag, err = tagRepo.GetByID(ctx, ref.ID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, fmt.Errorf("%w: tag %d does not exist", ErrBadRequest, ref.ID)
				}
				return nil, err
			}
		case ref.Name != "":
			tag, err = tagRepo.GetOrCreateByName(ctx, ref.Name, models.TagTargetBounty)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: tag reference needs an id or a name", ErrBadRequest)
		}

		if _, ok := seen[tag.ID]; ok {
			continue
		}
		seen[tag.ID] = struct{}{}
		resolved = append(resolved, *tag)
	}

	del := tx.NewDelete().Model((*models.BountyTag)(nil)).Where("bounty_id = ?", bountyID)
	if len(resolved) > 0 {
		ids := make([]int64, 0, len(resolved))
		for _, tag := range resolved {
			ids = append(ids, tag.ID)
		}
		del = del.Where("tag_id NOT IN (?)", bun.In(ids))
	}
	if _, err := del.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to prune tag associations: %w", err)
	}

	if len(resolved) > 0 {
		rows := make([]models.BountyTag, 0, len(resolved))
		for _, tag := range resolved {
			rows = append(rows, models.BountyTag{BountyID: bountyID, TagID: tag.ID})
		}
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (bounty_id, tag_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect tags: %w", err)
		}
	}

	return resolved, nil
}

func validateCreate(input *CreateBountyInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if input.UnitAmount <= 0 {
		return fmt.Errorf("%w: unit amount must be positive", ErrBadRequest)
	}
	if input.StartsAt.IsZero() {
		input.StartsAt = time.Now().UTC()
	}
	if !input.ExpiresAt.After(input.StartsAt) {
		return fmt.Errorf("%w: expiry must be after start", ErrBadRequest)
	}
	if input.Type == "" {
		input.Type = models.BountyTypeOther
	}
	if input.Mode == "" {
		input.Mode = models.BountyModeIndividual
	}
	if input.EntryLimit <= 0 {
		input.EntryLimit = 1
	}
	if input.Currency == "" {
		input.Currency = models.CurrencyBuzz
	}
	if input.MinBenefactorUnitAmount < 0 {
		return fmt.Errorf("%w: minimum benefactor amount cannot be negative", ErrBadRequest)
	}

	return nil
}

func applyUpdate(bounty *models.Bounty, input UpdateBountyInput) {
	if input.Name != nil {
		bounty.Name = *input.Name
	}
	if input.Description != nil {
		bounty.Description = *input.Description
	}
	if input.Details != nil {
		bounty.Details = input.Details
	}
	if input.Type != nil {
		bounty.Type = *input.Type
	}
	if input.Mode != nil {
		bounty.Mode = *input.Mode
	}
	if input.EntryLimit != nil {
		bounty.EntryLimit = *input.EntryLimit
	}
	if input.MinBenefactorUnitAmount != nil {
		bounty.MinBenefactorUnitAmount = *input.MinBenefactorUnitAmount
	}
	if input.Nsfw != nil {
		bounty.Nsfw = *input.Nsfw
	}
	if input.StartsAt != nil {
		bounty.StartsAt = bun.NullTime{Time: *input.StartsAt}
	}
	if input.ExpiresAt != nil {
		bounty.ExpiresAt = bun.NullTime{Time: *input.ExpiresAt}
	}
	if input.Complete != nil {
		bounty.Complete = *input.Complete
	}
}
