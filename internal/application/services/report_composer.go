package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
)

// filenameTimestampLayout is second resolution and lexically sortable.
const filenameTimestampLayout = "2006-01-02_15-04-05"

const defaultFilenameStem = "report"

// ReportComposer merges patient form data and the diagnostic caption into a
// rendered PDF report with a timestamped filename.
type ReportComposer struct {
	renderer providers.ReportRenderer
	template string
	opts     providers.ConvertOptions
	now      func() time.Time

	// Same-second compositions with an identical stem get a sequence suffix
	// so filenames never collide.
	mu       sync.Mutex
	lastBase string
	lastSeq  int
}

// NewReportComposer creates a new report composer.
func NewReportComposer(renderer providers.ReportRenderer, template string, opts providers.ConvertOptions) *ReportComposer {
	return &ReportComposer{
		renderer: renderer,
		template: template,
		opts:     opts,
		now:      time.Now,
	}
}

// Compose renders the report document for a form and caption. Template and
// conversion failures are fatal; nothing is persisted.
func (c *ReportComposer) Compose(ctx context.Context, form *entities.PatientForm, caption string) (*entities.ReportDocument, error) {
	if caption == "" {
		caption = entities.DefaultDiagnosis
	}

	slots := map[string]string{
		"patient_name":   form.Name,
		"patient_gender": string(form.Gender),
		"age":            form.Age,
		"blood_group":    form.BloodGroup,
		"patient_height": form.Height,
		"patient_weight": form.Weight,
		"patient_phone":  form.Phone,
		"doc_name":       form.DoctorName,
		"radio_name":     form.Radiologist,
		"diagnosis":      caption,
	}

	markup, err := c.renderer.Render(c.template, slots)
	if err != nil {
		return nil, err
	}

	content, err := c.renderer.ToPDF(ctx, markup, c.opts)
	if err != nil {
		return nil, err
	}

	return &entities.ReportDocument{
		Content:  content,
		Filename: c.nextFilename(form.FilenameStem),
	}, nil
}

func (c *ReportComposer) nextFilename(stem string) string {
	if stem == "" {
		stem = defaultFilenameStem
	}
	base := fmt.Sprintf("%s_%s", stem, c.now().Format(filenameTimestampLayout))

	c.mu.Lock()
	defer c.mu.Unlock()

	if base == c.lastBase {
		c.lastSeq++
		return fmt.Sprintf("%s_%d.pdf", base, c.lastSeq)
	}
	c.lastBase = base
	c.lastSeq = 1
	return base + ".pdf"
}
