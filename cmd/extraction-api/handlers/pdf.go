package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"github.com/docmill/extraction-engine/cmd/extraction-api/middleware"
	"github.com/docmill/extraction-engine/internal/observability"
	"github.com/docmill/extraction-engine/internal/pdfproc"
)

// PDFHandler serves page rendering and region cropping requests.
type PDFHandler struct {
	logger         *observability.Logger
	renderer       *pdfproc.Renderer
	maxUploadBytes int64
}

// NewPDFHandler creates a new PDF handler.
func NewPDFHandler(logger *observability.Logger, renderer *pdfproc.Renderer, maxUploadBytes int64) *PDFHandler {
	return &PDFHandler{
		logger:         logger,
		renderer:       renderer,
		maxUploadBytes: maxUploadBytes,
	}
}

// SnippetsResponse carries the rendered page dimensions and the cropped
// regions as base64-encoded PNGs, in request order.
type SnippetsResponse struct {
	PageNumber int      `json:"page_number"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Snippets   []string `json:"snippets"`
}

// Snippets handles POST /api/v1/pdf/snippets. The request is multipart form
// data with a "file" part, a "page_number" field (1-indexed) and a
// "segments" field holding a JSON array of pixel rectangles. An empty
// segments array returns the full page as the single snippet.
func (h *PDFHandler) Snippets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiKey := middleware.APIKeyFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	part, _, err := r.FormFile("file")
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

	pageNumber, err := strconv.Atoi(r.FormValue("page_number"))
	if err != nil || pageNumber < 1 {
		writeError(w, http.StatusBadRequest, "page_number must be a positive integer", "")
		return
	}

	var segments []pdfproc.Segment
	if raw := r.FormValue("segments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &segments); err != nil {
			writeError(w, http.StatusBadRequest, "segments must be a JSON array", err.Error())
			return
		}
	}

	raster, err := h.renderer.RenderPage(data, pageNumber)
	if err != nil {
		switch {
		case errors.Is(err, pdfproc.ErrPageNotFound):
			writeError(w, http.StatusNotFound, "page not found", err.Error())
		case errors.Is(err, pdfproc.ErrInvalidDocument):
			writeError(w, http.StatusBadRequest, "invalid document", err.Error())
		default:
			h.logger.WithContext(ctx).WithTenant(apiKey).Error().Err(err).Msg("Rendering failed")
			writeError(w, http.StatusInternalServerError, "rendering failed", "")
		}
		return
	}

	var crops []*image.RGBA
	if len(segments) == 0 {
		crops = []*image.RGBA{raster.Image}
	} else {
		crops, err = pdfproc.CropSegments(raster, segments)
		if err != nil {
			var oobErr *pdfproc.OutOfBoundsError
			if errors.As(err, &oobErr) {
				writeError(w, http.StatusUnprocessableEntity, "segment out of bounds", oobErr.Error())
				return
			}
			writeError(w, http.StatusBadRequest, "invalid segments", err.Error())
			return
		}
	}

	snippets := make([]string, 0, len(crops))
	for _, crop := range crops {
		var buf bytes.Buffer
		if err := png.Encode(&buf, crop); err != nil {
			h.logger.WithContext(ctx).WithTenant(apiKey).Error().Err(err).Msg("PNG encoding failed")
			writeError(w, http.StatusInternalServerError, "encoding failed", "")
			return
		}
		snippets = append(snippets, base64.StdEncoding.EncodeToString(buf.Bytes()))
	}

	writeJSON(w, http.StatusOK, SnippetsResponse{
		PageNumber: raster.PageNumber,
		Width:      raster.Width(),
		Height:     raster.Height(),
		Snippets:   snippets,
	})
}
