// Package handlers provides HTTP handlers for the extraction API.
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/docmill/extraction-engine/cmd/extraction-api/middleware"
	"github.com/docmill/extraction-engine/internal/ingest"
	"github.com/docmill/extraction-engine/internal/observability"
	"github.com/docmill/extraction-engine/internal/storage"
)

// TaskCreator runs the ingestion pipeline for one uploaded document.
type TaskCreator interface {
	CreateTask(ctx context.Context, req ingest.CreateTaskRequest) (*ingest.TaskResponse, error)
}

// IngestionHandler handles document upload requests.
type IngestionHandler struct {
	logger         *observability.Logger
	creator        TaskCreator
	maxUploadBytes int64
}

// NewIngestionHandler creates a new ingestion handler.
func NewIngestionHandler(logger *observability.Logger, creator TaskCreator, maxUploadBytes int64) *IngestionHandler {
	return &IngestionHandler{
		logger:         logger,
		creator:        creator,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateTask handles POST /api/v1/task. The request is multipart form data
// with a "file" part and an optional "model" field (HighQuality or Fast,
// defaulting to HighQuality).
func (h *IngestionHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiKey := middleware.APIKeyFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required", err.Error())
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file", err.Error())
		return
	}

	model := storage.ModelHighQuality
	if raw := r.FormValue("model"); raw != "" {
		model, err = storage.ParseExtractionModel(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid model", err.Error())
			return
		}
	}

	h.logger.WithContext(ctx).WithTenant(apiKey).Info().
		Str("file_name", header.Filename).
		Int64("file_size", header.Size).
		Str("model", model.ExternalName()).
		Msg("Received ingestion request")

	resp, err := h.creator.CreateTask(ctx, ingest.CreateTaskRequest{
		APIKey:   apiKey,
		UserID:   apiKey,
		FileName: header.Filename,
		Data:     data,
		Model:    model,
	})
	if err != nil {
		h.logger.WithContext(ctx).WithTenant(apiKey).Error().Err(err).Msg("Ingestion failed")
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
