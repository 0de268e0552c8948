package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/activmedica/backend/internal/api/middleware"
	"github.com/activmedica/backend/internal/application/services"
	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
)

// maxUploadBytes bounds the multipart form, image included.
const maxUploadBytes = 32 << 20

// ReportService defines the report operations used by the handler.
type ReportService interface {
	OnReportSubmitted(ctx context.Context, sessionID string, form *entities.PatientForm) (*services.ReportResult, error)
}

// ReportHandler handles report generation and history listing.
type ReportHandler struct {
	service ReportService
	records providers.RecordStore
}

// NewReportHandler creates a new report handler.
func NewReportHandler(service ReportService, records providers.RecordStore) *ReportHandler {
	return &ReportHandler{
		service: service,
		records: records,
	}
}

type reportForm struct {
	Name string `validate:"required,max=200"`
}

type reportResponse struct {
	Filename  string   `json:"filename"`
	URL       string   `json:"url"`
	PDFBase64 string   `json:"pdf_base64"`
	Warnings  []string `json:"warnings,omitempty"`
}

// GenerateReport handles POST /api/reports
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	form := &entities.PatientForm{
		Name:         strings.TrimSpace(r.FormValue("name")),
		Gender:       entities.NormalizeGender(r.FormValue("gender")),
		Age:          strings.TrimSpace(r.FormValue("age")),
		BloodGroup:   strings.TrimSpace(r.FormValue("blood_group")),
		Height:       strings.TrimSpace(r.FormValue("height")),
		Weight:       strings.TrimSpace(r.FormValue("weight")),
		Phone:        strings.TrimSpace(r.FormValue("phone")),
		DoctorName:   strings.TrimSpace(r.FormValue("doctor_name")),
		Radiologist:  strings.TrimSpace(r.FormValue("radiologist_name")),
		FilenameStem: sanitizeStem(r.FormValue("filename_stem")),
	}

	if err := validate.Struct(&reportForm{Name: form.Name}); err != nil {
		respondWithError(w, http.StatusBadRequest, "patient name is required")
		return
	}

	imageBytes, err := readImage(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read uploaded image")
		return
	}
	form.ImageBytes = imageBytes
	if form.FilenameStem == "" {
		form.FilenameStem = stemFromName(form.Name)
	}

	result, err := h.service.OnReportSubmitted(r.Context(), claims.SessionID, form)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, reportResponse{
		Filename:  result.Filename,
		URL:       result.URL,
		PDFBase64: base64.StdEncoding.EncodeToString(result.Content),
		Warnings:  result.Warnings,
	})
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	records, err := h.records.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reports": records,
		"count":   len(records),
	})
}

func readImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// sanitizeStem strips path separators so a client-supplied stem cannot
// escape the object key namespace.
func sanitizeStem(stem string) string {
	stem = strings.TrimSpace(stem)
	stem = strings.ReplaceAll(stem, "/", "_")
	stem = strings.ReplaceAll(stem, "\\", "_")
	return strings.Trim(stem, ".")
}

func stemFromName(name string) string {
	stem := strings.ToLower(strings.TrimSpace(name))
	stem = strings.ReplaceAll(stem, " ", "_")
	return sanitizeStem(stem)
}
