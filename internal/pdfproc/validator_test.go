package pdfproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/extraction-engine/internal/pdfproc/pdftest"
)

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(pdftest.MinimalPDF(1)))
}

func TestValidateRejectsGarbage(t *testing.T) {
	v := NewValidator()

	for name, buf := range map[string][]byte{
		"empty":       {},
		"not a pdf":   []byte("hello world"),
		"header only": []byte("%PDF-1.4\n"),
		"truncated":   pdftest.MinimalPDF(2)[:40],
	} {
		t.Run(name, func(t *testing.T) {
			err := v.Validate(buf)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestPageCount(t *testing.T) {
	v := NewValidator()

	for _, pages := range []int{1, 3, 12} {
		got, err := v.PageCount(pdftest.MinimalPDF(pages))
		require.NoError(t, err)
		assert.Equal(t, pages, got)
	}
}

func TestPageCountRejectsGarbage(t *testing.T) {
	v := NewValidator()
	_, err := v.PageCount([]byte("not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}
