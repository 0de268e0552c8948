package extraction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/activmedica/backend/internal/adapters/extraction"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

func TestPDFExtractor_Extract(t *testing.T) {
	t.Run("rejects malformed documents", func(t *testing.T) {
		extractor := extraction.NewPDFExtractor()

		_, err := extractor.Extract([]byte("not a pdf"))

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExtraction))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		extractor := extraction.NewPDFExtractor()

		_, err := extractor.Extract(nil)

		assert.Error(t, err)
	})
}
