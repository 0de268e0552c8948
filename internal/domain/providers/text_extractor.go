package providers

// TextExtractor reconstructs plain text from a rendered PDF, concatenating
// page-level text in page order. Empty pages contribute empty strings.
type TextExtractor interface {
	Extract(pdfBytes []byte) (string, error)
}
