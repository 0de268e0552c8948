package entities

// SessionState holds everything a user session accumulates between requests:
// the last submitted form, the last rendered report, its extracted text, the
// analyzed flag and the chat transcript. One session is owned by exactly one
// user and is dropped on logout.
type SessionState struct {
	UserID        string
	Email         string
	Form          *PatientForm
	Document      *ReportDocument
	ExtractedText string

	// Analyzed is true once the current document's extracted text has been
	// sent to the conversational model as the seeding prompt. It is reset to
	// false by every successful report generation.
	Analyzed bool

	History []ChatMessage
}

// HasReport reports whether the session holds extracted text from a rendered
// report, i.e. whether automatic analysis has anything to seed from.
func (s *SessionState) HasReport() bool {
	return s != nil && s.ExtractedText != ""
}
