package providers

import (
	"context"
)

// ConvertOptions controls the markup to PDF conversion. The report template
// references local assets, so local file access is normally enabled.
type ConvertOptions struct {
	AllowLocalFileAccess bool
	AllowScripts         bool
}

// ReportRenderer renders a named template into markup and converts markup
// into a paginated PDF document.
type ReportRenderer interface {
	Render(templateID string, context map[string]string) ([]byte, error)
	ToPDF(ctx context.Context, markup []byte, opts ConvertOptions) ([]byte, error)
}
