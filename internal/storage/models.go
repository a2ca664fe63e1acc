// Package storage provides database models and repositories for the
// extraction engine.
package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Status represents the lifecycle state of a task or file. Ingestion only
// ever writes Starting; later transitions belong to the extraction workers.
type Status string

const (
	StatusStarting   Status = "Starting"
	StatusProcessing Status = "Processing"
	StatusSucceeded  Status = "Succeeded"
	StatusFailed     Status = "Failed"
)

// UsageTypePages is the usage type metered by the ingestion pipeline.
const UsageTypePages = "page_count"

// ServiceIngestion tags usage rows written by this service.
const ServiceIngestion = "ingestion"

// ExtractionModel is the closed set of extraction model variants. Each
// variant carries its output extension and external-facing name as
// capability methods rather than open-ended string dispatch.
type ExtractionModel string

const (
	// ModelHighQuality runs the full layout-analysis model.
	ModelHighQuality ExtractionModel = "pdla"
	// ModelFast runs the lightweight layout-analysis model.
	ModelFast ExtractionModel = "pdla_fast"
)

// ParseExtractionModel maps a request string (external or internal name)
// to a model variant.
func ParseExtractionModel(s string) (ExtractionModel, error) {
	switch strings.ToLower(s) {
	case "highquality", "high_quality", string(ModelHighQuality):
		return ModelHighQuality, nil
	case "fast", string(ModelFast):
		return ModelFast, nil
	default:
		return "", fmt.Errorf("unknown extraction model %q", s)
	}
}

// Extension returns the filename extension of the model's output artifact.
func (m ExtractionModel) Extension() string {
	switch m {
	case ModelHighQuality, ModelFast:
		return "json"
	default:
		return "json"
	}
}

// ExternalName returns the caller-facing name of the model.
func (m ExtractionModel) ExternalName() string {
	switch m {
	case ModelFast:
		return "Fast"
	default:
		return "HighQuality"
	}
}

// DeriveOutputLocation derives the output artifact location from the input
// location by substituting the model's extension for the input's filename
// extension. It is a pure function of (input, model): the only place output
// locations are produced.
func DeriveOutputLocation(inputLocation string, model ExtractionModel) string {
	ext := path.Ext(inputLocation)
	return strings.TrimSuffix(inputLocation, ext) + "." + model.Extension()
}

// Task is one ingestion request's durable record, created once with status
// Starting and mutated only by out-of-scope worker logic.
type Task struct {
	TaskID         string          `json:"task_id" db:"task_id"`
	FileCount      int             `json:"file_count" db:"file_count"`
	TotalSize      int64           `json:"total_size" db:"total_size"`
	TotalPages     int             `json:"total_pages" db:"total_pages"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
	ExpirationTime *time.Time      `json:"expiration_time,omitempty" db:"expiration_time"`
	APIKey         string          `json:"-" db:"api_key"`
	TaskURL        string          `json:"task_url" db:"url"`
	Status         Status          `json:"status" db:"status"`
	Model          ExtractionModel `json:"model" db:"model"`
}

// File is a source artifact belonging to a task. Ingestion creates exactly
// one per task.
type File struct {
	FileID         string          `json:"file_id" db:"file_id"`
	TaskID         string          `json:"task_id" db:"task_id"`
	FileName       string          `json:"file_name" db:"file_name"`
	FileSize       int64           `json:"file_size" db:"file_size"`
	PageCount      int             `json:"page_count" db:"page_count"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	Status         Status          `json:"status" db:"status"`
	InputLocation  string          `json:"input_location" db:"input_location"`
	OutputLocation string          `json:"output_location" db:"output_location"`
	Model          ExtractionModel `json:"model" db:"model"`
}

// UsageRecord is a monotonically non-decreasing usage accumulator keyed by
// (api key, usage type, service). It is only ever additively upserted.
type UsageRecord struct {
	APIKey    string `json:"api_key" db:"api_key"`
	Usage     int64  `json:"usage" db:"usage"`
	UsageType string `json:"usage_type" db:"usage_type"`
	Service   string `json:"service" db:"service"`
}

// UsageLimit is a tenant key's upper bound for a usage type. Absence of a
// row means unbounded.
type UsageLimit struct {
	APIKey     string `json:"api_key" db:"api_key"`
	UsageType  string `json:"usage_type" db:"usage_type"`
	UsageLimit int64  `json:"usage_limit" db:"usage_limit"`
}
