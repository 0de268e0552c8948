package services

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/activmedica/backend/internal/infrastructure/observability"
)

// CaptionService produces a diagnostic caption for an uploaded MRI image.
// Captioning is best effort: any failure degrades to the fallback diagnosis
// so report generation is never blocked by the vision model.
type CaptionService struct {
	captioner providers.Captioner
}

// NewCaptionService creates a new caption service.
func NewCaptionService(captioner providers.Captioner) *CaptionService {
	return &CaptionService{captioner: captioner}
}

// Generate returns a caption for the image, or the fallback diagnosis when
// no image was uploaded or captioning failed.
func (s *CaptionService) Generate(ctx context.Context, imageBytes []byte) string {
	if len(imageBytes) == 0 {
		return entities.DefaultDiagnosis
	}

	normalized, err := normalizeToRGB(imageBytes)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("image normalization failed, using fallback diagnosis")
		return entities.DefaultDiagnosis
	}

	caption, err := s.captioner.Caption(ctx, normalized)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("captioning failed, using fallback diagnosis")
		return entities.DefaultDiagnosis
	}
	return caption
}

// normalizeToRGB decodes the uploaded image and re-encodes it as JPEG, which
// forces three-channel color regardless of the source color mode.
func normalizeToRGB(imageBytes []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	rgb := image.NewRGBA(bounds)
	draw.Draw(rgb, bounds, src, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
