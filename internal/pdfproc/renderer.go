package pdfproc

import (
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// ErrPageNotFound indicates a page number outside [1, page_count].
var ErrPageNotFound = errors.New("page not found")

// renderDPI maps one PDF point to one output pixel (PDF points are 1/72").
// Rendering at a fixed DPI keeps output byte-identical across calls.
const renderDPI = 72.0

// PageRaster is a full, upright render of a single page at the page's
// native dimensions.
type PageRaster struct {
	Image      *image.RGBA
	PageNumber int // 1-indexed
}

// Width returns the raster width in pixels.
func (r *PageRaster) Width() int {
	return r.Image.Bounds().Dx()
}

// Height returns the raster height in pixels.
func (r *PageRaster) Height() int {
	return r.Image.Bounds().Dy()
}

// Renderer rasterizes PDF pages using go-fitz (MuPDF).
type Renderer struct{}

// NewRenderer creates a new renderer instance.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderPage parses buf, locates the given 1-indexed page and rasterizes
// its full content into a pixel buffer, with no rotation or cropping.
func (r *Renderer) RenderPage(buf []byte, pageNumber int) (*PageRaster, error) {
	doc, err := fitz.NewFromMemory(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer doc.Close()

	// go-fitz addresses pages from 0.
	if pageNumber < 1 || pageNumber > doc.NumPage() {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageNotFound, pageNumber, doc.NumPage())
	}

	img, err := doc.ImageDPI(pageNumber-1, renderDPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageNumber, err)
	}

	return &PageRaster{Image: img, PageNumber: pageNumber}, nil
}
