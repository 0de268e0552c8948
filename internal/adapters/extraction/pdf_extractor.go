package extraction

import (
	"bytes"
	"strings"

	"github.com/activmedica/backend/internal/domain/providers"
	apperrors "github.com/activmedica/backend/pkg/errors"
	"github.com/ledongthuc/pdf"
)

// PDFExtractor implements the TextExtractor provider on rendered PDF bytes.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF text extractor.
func NewPDFExtractor() providers.TextExtractor {
	return &PDFExtractor{}
}

// Extract concatenates the text of every page in page order. Empty pages
// contribute empty strings; a document that cannot be parsed is fatal.
func (e *PDFExtractor) Extract(pdfBytes []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return "", apperrors.NewExtractionError("failed to parse report document", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", apperrors.NewExtractionError("failed to extract page text", err)
		}
		builder.WriteString(text)
	}

	return builder.String(), nil
}
