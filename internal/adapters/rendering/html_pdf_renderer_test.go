package rendering_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/activmedica/backend/internal/adapters/rendering"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
	assert.NoError(t, err)
}

func TestHTMLPDFRenderer_Render(t *testing.T) {
	t.Run("fills slots into the template", func(t *testing.T) {
		dir := t.TempDir()
		writeTemplate(t, dir, "report.html", "<h1>{{.patient_name}}</h1><p>{{.diagnosis}}</p>")
		renderer := rendering.NewHTMLPDFRenderer(dir)

		markup, err := renderer.Render("report.html", map[string]string{
			"patient_name": "Jane Roe",
			"diagnosis":    "No diagnosis available",
		})

		assert.NoError(t, err)
		assert.Contains(t, string(markup), "<h1>Jane Roe</h1>")
		assert.Contains(t, string(markup), "No diagnosis available")
	})

	t.Run("escapes markup in slot values", func(t *testing.T) {
		dir := t.TempDir()
		writeTemplate(t, dir, "report.html", "<p>{{.diagnosis}}</p>")
		renderer := rendering.NewHTMLPDFRenderer(dir)

		markup, err := renderer.Render("report.html", map[string]string{
			"diagnosis": "<script>alert(1)</script>",
		})

		assert.NoError(t, err)
		assert.NotContains(t, string(markup), "<script>")
	})

	t.Run("reports a missing template", func(t *testing.T) {
		renderer := rendering.NewHTMLPDFRenderer(t.TempDir())

		_, err := renderer.Render("missing.html", nil)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRender))
	})

	t.Run("ignores directory components in the template id", func(t *testing.T) {
		dir := t.TempDir()
		writeTemplate(t, dir, "report.html", "ok")
		renderer := rendering.NewHTMLPDFRenderer(dir)

		markup, err := renderer.Render("../../etc/report.html", nil)

		assert.NoError(t, err)
		assert.Equal(t, "ok", string(markup))
	})
}
