package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/extraction-engine/internal/storage"
)

func TestNewEnvelopeGeneratesFreshItemID(t *testing.T) {
	payload := ExtractionPayload{
		Model:          storage.ModelHighQuality,
		InputLocation:  "s3://bucket/u/t/tok/a.pdf",
		OutputLocation: "s3://bucket/u/t/tok/a.json",
		FileID:         "file-1",
		TaskID:         "task-1",
	}

	first, err := NewEnvelope("extraction", payload, 3)
	require.NoError(t, err)
	second, err := NewEnvelope("extraction", payload, 3)
	require.NoError(t, err)

	// Resubmitting the same payload must never reuse an item id, or the
	// queue would deduplicate a legitimate retry.
	assert.NotEqual(t, first.ItemID, second.ItemID)
	_, err = uuid.Parse(first.ItemID)
	assert.NoError(t, err)
}

func TestEnvelopeWireShape(t *testing.T) {
	exp := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	payload := ExtractionPayload{
		Model:          storage.ModelFast,
		InputLocation:  "s3://bucket/u/t/tok/a.pdf",
		OutputLocation: "s3://bucket/u/t/tok/a.json",
		Expiration:     &exp,
		BatchSize:      300,
		FileID:         "file-1",
		TaskID:         "task-1",
	}

	env, err := NewEnvelope("extraction", payload, 3)
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "extraction", decoded["queue_name"])
	assert.Equal(t, float64(3), decoded["max_attempts"])
	assert.NotContains(t, decoded, "publish_channel")

	inner, ok := decoded["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pdla_fast", inner["model"])
	assert.Equal(t, "s3://bucket/u/t/tok/a.pdf", inner["input_location"])
	assert.Equal(t, "s3://bucket/u/t/tok/a.json", inner["output_location"])
	assert.Equal(t, float64(300), inner["batch_size"])
}

func TestEnvelopeOmitsZeroMaxAttempts(t *testing.T) {
	env, err := NewEnvelope("extraction", ExtractionPayload{TaskID: "task-1"}, 0)
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "max_attempts")
}
