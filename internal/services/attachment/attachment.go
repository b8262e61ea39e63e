// Package attachment manages the polymorphic file and image associations
// hanging off marketplace entities. Entities reference attachments by
// (entity_id, entity_type); replacement is wholesale per entity.
package attachment

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/artfundry/bounty-server/internal/services/fileuploader"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type FileInput struct {
	Name     string          `json:"name"`
	Url      string          `json:"url"`
	SizeKB   int64           `json:"size_kb"`
	Metadata json.RawMessage `json:"metadata"`
	// Content, when set, is uploaded to storage and Url is filled from the
	// upload destination.
	Content []byte `json:"-"`
}

type ImageInput struct {
	Url     string `json:"url"`
	Content []byte `json:"-"`
}

type Service struct {
	uploader *fileuploader.Uploader
	logger   *zap.Logger
}

func NewService(uploader *fileuploader.Uploader, logger *zap.Logger) *Service {
	return &Service{uploader: uploader, logger: logger}
}

// ReplaceFiles swaps the full file set of an entity: existing associations
// are removed and the given set becomes the only one. Runs on whatever
// handle the caller passes, so it can join an enclosing transaction.
func (s *Service) ReplaceFiles(ctx context.Context, db bun.IDB, entityID int64, entityType string, files []FileInput) ([]models.EntityFile, error) {
	_, err := db.NewDelete().
		Model(&models.EntityFile{}).
		Where("entity_id = ? AND entity_type = ?", entityID, entityType).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear file associations: %w", err)
	}

	if len(files) == 0 {
		return nil, nil
	}

	rows := make([]models.EntityFile, 0, len(files))
	for _, file := range files {
		url := file.Url
		if len(file.Content) > 0 {
			url, err = s.uploadContent(file.Content)
			if err != nil {
				return nil, err
			}
		}
		if url == "" {
			return nil, fmt.Errorf("file %q has neither url nor content", file.Name)
		}

		rows = append(rows, models.EntityFile{
			ID:         uuid.Must(uuid.NewRandom()),
			EntityID:   entityID,
			EntityType: entityType,
			Name:       file.Name,
			Url:        url,
			SizeKB:     file.SizeKB,
			Metadata:   file.Metadata,
		})
	}

	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert file associations: %w", err)
	}

	return rows, nil
}

// AttachImages records image connections for an entity. Images given as raw
// content are probed for dimensions, thumbnailed and uploaded before the row
// is written; URL-only images stay pending until the ingestion pipeline
// picks them up.
func (s *Service) AttachImages(ctx context.Context, db bun.IDB, entityID int64, entityType string, userID uuid.UUID, images []ImageInput) ([]models.EntityImage, error) {
	if len(images) == 0 {
		return nil, nil
	}

	rows := make([]models.EntityImage, 0, len(images))
	for _, input := range images {
		row := models.EntityImage{
			ID:         uuid.Must(uuid.NewRandom()),
			EntityID:   entityID,
			EntityType: entityType,
			UserID:     userID,
			Url:        input.Url,
			Ingestion:  models.ImageIngestionPending,
		}

		if len(input.Content) > 0 {
			if err := s.ingest(&row, input.Content); err != nil {
				return nil, err
			}
		} else if input.Url == "" {
			return nil, fmt.Errorf("image has neither url nor content")
		}

		rows = append(rows, row)
	}

	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert image connections: %w", err)
	}

	return rows, nil
}

func (s *Service) Files(ctx context.Context, db bun.IDB, entityID int64, entityType string) ([]models.EntityFile, error) {
	var files []models.EntityFile
	err := db.NewSelect().
		Model(&files).
		Where("entity_id = ? AND entity_type = ?", entityID, entityType).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (s *Service) Images(ctx context.Context, db bun.IDB, entityID int64, entityType string) ([]models.EntityImage, error) {
	var images []models.EntityImage
	err := db.NewSelect().
		Model(&images).
		Where("entity_id = ? AND entity_type = ?", entityID, entityType).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return images, nil
}

// ImagesForEntities batch-loads images for many entities at once, grouped by
// entity id. Only scanned images are returned; pending and blocked ones are
// not served.
func (s *Service) ImagesForEntities(ctx context.Context, db bun.IDB, entityIDs []int64, entityType string) (map[int64][]models.EntityImage, error) {
	grouped := make(map[int64][]models.EntityImage, len(entityIDs))
	if len(entityIDs) == 0 {
		return grouped, nil
	}

	var images []models.EntityImage
	err := db.NewSelect().
		Model(&images).
		Where("entity_id IN (?) AND entity_type = ?", bun.In(entityIDs), entityType).
		Where("ingestion = ?", models.ImageIngestionScanned).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, image := range images {
		grouped[image.EntityID] = append(grouped[image.EntityID], image)
	}

	return grouped, nil
}

// DeleteFiles removes every file association scoped to the entity.
func (s *Service) DeleteFiles(ctx context.Context, db bun.IDB, entityID int64, entityType string) error {
	_, err := db.NewDelete().
		Model(&models.EntityFile{}).
		Where("entity_id = ? AND entity_type = ?", entityID, entityType).
		Exec(ctx)
	return err
}

func (s *Service) uploadContent(content []byte) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("no uploader configured for raw file content")
	}

	extension := extensionFor(content)
	response := make(chan string, 1)
	s.uploader.UploadBytes(content, extension, response)

	url := <-response
	if url == "" {
		return "", fmt.Errorf("upload failed")
	}

	return url, nil
}

func extensionFor(content []byte) string {
	mtype := mimetype.Detect(content)
	if ext := mtype.Extension(); ext != "" {
		return ext
	}

	if exts, _ := mime.ExtensionsByType(mtype.String()); len(exts) > 0 {
		return exts[0]
	}

	return ".bin"
}
