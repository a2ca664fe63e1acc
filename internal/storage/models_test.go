package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractionModel(t *testing.T) {
	cases := map[string]ExtractionModel{
		"HighQuality":  ModelHighQuality,
		"highquality":  ModelHighQuality,
		"high_quality": ModelHighQuality,
		"pdla":         ModelHighQuality,
		"Fast":         ModelFast,
		"fast":         ModelFast,
		"pdla_fast":    ModelFast,
	}
	for input, want := range cases {
		got, err := ParseExtractionModel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseExtractionModel("turbo")
	require.Error(t, err)
	_, err = ParseExtractionModel("")
	require.Error(t, err)
}

func TestExternalName(t *testing.T) {
	assert.Equal(t, "HighQuality", ModelHighQuality.ExternalName())
	assert.Equal(t, "Fast", ModelFast.ExternalName())
}

func TestDeriveOutputLocation(t *testing.T) {
	cases := map[string]string{
		"s3://bucket/user/task/tok/report.pdf": "s3://bucket/user/task/tok/report.json",
		"s3://bucket/user/task/tok/report":     "s3://bucket/user/task/tok/report.json",
		// Only the final extension is substituted, not earlier matches in
		// the path.
		"s3://bucket/u.pdf/task/tok/a.pdf.pdf": "s3://bucket/u.pdf/task/tok/a.pdf.json",
	}
	for input, want := range cases {
		assert.Equal(t, want, DeriveOutputLocation(input, ModelHighQuality), input)
		assert.Equal(t, want, DeriveOutputLocation(input, ModelFast), input)
	}
}

func TestDeriveOutputLocationIsPure(t *testing.T) {
	input := "s3://bucket/user/task/tok/report.pdf"
	first := DeriveOutputLocation(input, ModelFast)
	second := DeriveOutputLocation(input, ModelFast)
	assert.Equal(t, first, second)
}
