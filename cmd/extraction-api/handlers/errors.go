package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docmill/extraction-engine/internal/ingest"
	"github.com/docmill/extraction-engine/internal/meter"
	"github.com/docmill/extraction-engine/internal/pdfproc"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}

// writePipelineError maps ingestion pipeline failures to HTTP statuses:
// client faults (bad document, exhausted quota) versus this service's
// dependencies (storage, database, queue).
func writePipelineError(w http.ResponseWriter, err error) {
	var quotaErr *meter.QuotaExceededError
	var uploadErr *ingest.StorageUploadError
	var txErr *ingest.TransactionError
	var queueErr *ingest.QueueSubmissionError

	switch {
	case errors.Is(err, pdfproc.ErrInvalidDocument):
		writeError(w, http.StatusBadRequest, "invalid document", err.Error())
	case errors.As(err, &quotaErr):
		writeError(w, http.StatusTooManyRequests, "usage limit exceeded", quotaErr.Error())
	case errors.As(err, &uploadErr):
		writeError(w, http.StatusInternalServerError, "failed to store document", "")
	case errors.As(err, &txErr):
		writeError(w, http.StatusInternalServerError, "failed to record task", "")
	case errors.As(err, &queueErr):
		writeError(w, http.StatusBadGateway, "failed to queue extraction", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}
