package attachment

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/anthonynsimon/bild/transform"
	"github.com/artfundry/bounty-server/internal/db/models"
	"go.uber.org/zap"
)

const thumbMaxDim = 450

// ingest probes the raw image, generates a thumbnail, and uploads both. The
// row comes back Scanned with dimensions and URLs filled in.
func (s *Service) ingest(row *models.EntityImage, content []byte) error {
	width, height, err := ProbeImage(content)
	if err != nil {
		return fmt.Errorf("failed to probe image: %w", err)
	}
	row.Width = width
	row.Height = height

	url, err := s.uploadContent(content)
	if err != nil {
		return err
	}
	row.Url = url

	thumb, err := Thumbnail(content, thumbMaxDim)
	if err != nil {
		// A missing thumbnail is not worth failing the attach over.
		if s.logger != nil {
			s.logger.Warn("failed to generate thumbnail", zap.Error(err))
		}
	} else {
		thumbUrl, err := s.uploadContent(thumb)
		if err != nil {
			return err
		}
		row.ThumbUrl = thumbUrl
	}

	row.Ingestion = models.ImageIngestionScanned
	return nil
}

// ProbeImage returns the pixel dimensions of an encoded image. PNG, JPEG,
// GIF and WebP are recognized.
func ProbeImage(content []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return 0, 0, err
	}

	return cfg.Width, cfg.Height, nil
}

// Thumbnail downscales the image so its longest side is at most maxDim,
// re-encoding as JPEG. Images already small enough are re-encoded as-is.
func Thumbnail(content []byte, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxDim || height > maxDim {
		if width >= height {
			height = height * maxDim / width
			width = maxDim
		} else {
			width = width * maxDim / height
			height = maxDim
		}
		img = transform.Resize(img, width, height, transform.Linear)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
