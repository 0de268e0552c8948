package rendering

import (
	"bytes"
	"context"
	"html/template"
	"os"
	"path/filepath"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/activmedica/backend/internal/domain/providers"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

// HTMLPDFRenderer implements the ReportRenderer provider with html/template
// for markup and wkhtmltopdf for the PDF conversion.
type HTMLPDFRenderer struct {
	templateDir string
}

// NewHTMLPDFRenderer creates a renderer that looks up templates in dir.
func NewHTMLPDFRenderer(templateDir string) providers.ReportRenderer {
	return &HTMLPDFRenderer{templateDir: templateDir}
}

// Render executes the named template against the slot context.
func (r *HTMLPDFRenderer) Render(templateID string, slots map[string]string) ([]byte, error) {
	path := filepath.Join(r.templateDir, filepath.Base(templateID))
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewRenderError("report template not found: "+templateID, err)
	}

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, apperrors.NewRenderError("failed to parse report template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, slots); err != nil {
		return nil, apperrors.NewRenderError("failed to render report template", err)
	}
	return buf.Bytes(), nil
}

// ToPDF converts rendered markup into a paginated PDF document.
func (r *HTMLPDFRenderer) ToPDF(ctx context.Context, markup []byte, opts providers.ConvertOptions) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, apperrors.NewRenderError("pdf converter unavailable", err)
	}

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(markup))
	if opts.AllowLocalFileAccess {
		page.EnableLocalFileAccess.Set(true)
	}
	if !opts.AllowScripts {
		page.DisableJavascript.Set(true)
	}
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, apperrors.NewRenderError("pdf conversion failed", err)
	}
	return pdfg.Bytes(), nil
}
