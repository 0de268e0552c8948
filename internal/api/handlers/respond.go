package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/activmedica/backend/pkg/errors"
)

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps service error types to HTTP status codes.
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeUnauthorized, apperrors.ErrorTypeAuth:
		respondWithError(w, http.StatusUnauthorized, appErr.Message)
	case apperrors.ErrorTypeChatCall, apperrors.ErrorTypeUpload, apperrors.ErrorTypeExternal:
		respondWithError(w, http.StatusBadGateway, appErr.Message)
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
