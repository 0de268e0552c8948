package entities

import "time"

// DefaultDiagnosis is rendered into the diagnosis slot when no caption was
// produced for the uploaded image.
const DefaultDiagnosis = "No diagnosis available"

// ReportDocument is a rendered PDF report. URL is populated only after the
// document has been archived.
type ReportDocument struct {
	Content  []byte `json:"-"`
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
}

// ReportRecord is the persisted tuple appended under a user's namespace
// after a successful archive. Records are append-only.
type ReportRecord struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	PDFURL    string    `json:"pdf_url" db:"pdf_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
