// Package pdfproc provides PDF validation, page rendering and region
// extraction for the extraction engine.
package pdfproc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidDocument indicates a byte buffer that is not a parseable PDF.
var ErrInvalidDocument = errors.New("invalid document")

// Validator checks that uploaded byte buffers are structurally parseable
// PDF containers and reports their page counts.
type Validator struct {
	conf *model.Configuration
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Validator{conf: conf}
}

// Validate attempts to parse buf as a PDF container. It must be called
// before any side effect of an ingestion takes place.
func (v *Validator) Validate(buf []byte) error {
	ctx, err := api.ReadContext(bytes.NewReader(buf), v.conf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// PageCount parses buf a second time and returns the number of pages.
// A parseable document with zero pages is valid but degenerate; callers
// feed the count into quota arithmetic unchanged.
func (v *Validator) PageCount(buf []byte) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(buf), v.conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return ctx.PageCount, nil
}
