// Package ingest composes validation, metering, storage and queueing into
// the upload-to-enqueue ingestion pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docmill/extraction-engine/internal/meter"
	"github.com/docmill/extraction-engine/internal/objectstore"
	"github.com/docmill/extraction-engine/internal/observability"
	"github.com/docmill/extraction-engine/internal/queue"
	"github.com/docmill/extraction-engine/internal/storage"
)

// DocumentChecker validates byte buffers and counts their pages.
type DocumentChecker interface {
	Validate(buf []byte) error
	PageCount(buf []byte) (int, error)
}

// UsageReader reads committed usage state for the advisory admission check.
type UsageReader interface {
	TotalUsage(ctx context.Context, apiKey, usageType string) (int64, error)
	Limit(ctx context.Context, apiKey, usageType string) (int64, error)
}

// TaskRecorder persists the task unit atomically, re-checking admission.
type TaskRecorder interface {
	CreateWithUsage(ctx context.Context, task *storage.Task, file *storage.File) error
}

// Config holds the orchestrator's pipeline settings.
type Config struct {
	Bucket         string
	BaseURL        string
	QueueName      string
	BatchSize      int
	MaxAttempts    int
	TaskExpiration time.Duration // 0 means tasks never expire
}

// Orchestrator runs the end-to-end ingestion flow.
type Orchestrator struct {
	logger   *observability.Logger
	checker  DocumentChecker
	usage    UsageReader
	store    objectstore.Store
	recorder TaskRecorder
	producer queue.Producer
	cfg      Config
}

// NewOrchestrator creates an ingestion orchestrator.
func NewOrchestrator(
	logger *observability.Logger,
	checker DocumentChecker,
	usage UsageReader,
	store objectstore.Store,
	recorder TaskRecorder,
	producer queue.Producer,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		logger:   logger,
		checker:  checker,
		usage:    usage,
		store:    store,
		recorder: recorder,
		producer: producer,
		cfg:      cfg,
	}
}

// CreateTaskRequest carries one ingestion request.
type CreateTaskRequest struct {
	TaskID   string // optional; generated when empty
	APIKey   string // metered tenant key
	UserID   string // storage path segment; defaults to APIKey
	FileName string
	Data     []byte
	Model    storage.ExtractionModel
}

// TaskResponse is the caller-facing task descriptor.
type TaskResponse struct {
	TaskID         string         `json:"task_id"`
	Status         storage.Status `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	ExpirationTime *time.Time     `json:"expiration_time,omitempty"`
	TaskURL        string         `json:"task_url"`
	Message        string         `json:"message"`
	Model          string         `json:"model"`
}

// CreateTask runs the pipeline: validate, count, advisory quota check,
// upload, transactional record (authoritative quota re-check), enqueue.
// Each step stops the pipeline on failure; validation and quota failures
// happen before any externally visible side effect.
func (o *Orchestrator) CreateTask(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error) {
	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.New().String()
	}
	userID := req.UserID
	if userID == "" {
		userID = req.APIKey
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = "unknown.pdf"
	}

	log := o.logger.WithContext(ctx).WithTenant(req.APIKey).WithTask(taskID)

	if err := o.checker.Validate(req.Data); err != nil {
		return nil, err
	}

	pageCount, err := o.checker.PageCount(req.Data)
	if err != nil {
		return nil, err
	}

	// Advisory pre-upload check against the most recent committed state.
	// Saves the upload when the outcome is already hopeless; the recorder
	// re-validates under a row lock.
	current, err := o.usage.TotalUsage(ctx, req.APIKey, storage.UsageTypePages)
	if err != nil {
		return nil, fmt.Errorf("read usage: %w", err)
	}
	limit, err := o.usage.Limit(ctx, req.APIKey, storage.UsageTypePages)
	if err != nil {
		return nil, fmt.Errorf("read usage limit: %w", err)
	}
	if err := meter.Decide(current, int64(pageCount), limit); err != nil {
		return nil, err
	}

	token := uuid.New().String()
	inputLocation := objectstore.BuildInputLocation(o.cfg.Bucket, userID, taskID, token, fileName)
	outputLocation := storage.DeriveOutputLocation(inputLocation, req.Model)
	taskURL := fmt.Sprintf("%s/task/%s", o.cfg.BaseURL, taskID)

	createdAt := time.Now().UTC()
	var expirationTime *time.Time
	if o.cfg.TaskExpiration > 0 {
		exp := createdAt.Add(o.cfg.TaskExpiration)
		expirationTime = &exp
	}

	if err := o.store.Put(ctx, inputLocation, req.Data); err != nil {
		return nil, &StorageUploadError{Location: inputLocation, Err: err}
	}

	task := &storage.Task{
		TaskID:         taskID,
		FileCount:      1,
		TotalSize:      int64(len(req.Data)),
		TotalPages:     pageCount,
		CreatedAt:      createdAt,
		ExpirationTime: expirationTime,
		APIKey:         req.APIKey,
		TaskURL:        taskURL,
		Status:         storage.StatusStarting,
		Model:          req.Model,
	}
	file := &storage.File{
		FileID:         uuid.New().String(),
		TaskID:         taskID,
		FileName:       fileName,
		FileSize:       int64(len(req.Data)),
		PageCount:      pageCount,
		CreatedAt:      createdAt,
		Status:         storage.StatusStarting,
		InputLocation:  inputLocation,
		OutputLocation: outputLocation,
		Model:          req.Model,
	}

	if err := o.recorder.CreateWithUsage(ctx, task, file); err != nil {
		// The upload preceded the transaction so the transaction could
		// record its location; compensate so a rollback does not strand
		// the object.
		if delErr := o.store.Delete(ctx, inputLocation); delErr != nil {
			log.Warn().Err(delErr).Str("location", inputLocation).
				Msg("Failed to delete uploaded object after rollback")
		}

		var quotaErr *meter.QuotaExceededError
		if errors.As(err, &quotaErr) {
			return nil, err
		}
		return nil, &TransactionError{Err: err}
	}

	payload := queue.ExtractionPayload{
		Model:          req.Model,
		InputLocation:  inputLocation,
		OutputLocation: outputLocation,
		Expiration:     expirationTime,
		BatchSize:      o.cfg.BatchSize,
		FileID:         file.FileID,
		TaskID:         taskID,
	}
	envelope, err := queue.NewEnvelope(o.cfg.QueueName, payload, o.cfg.MaxAttempts)
	if err != nil {
		return nil, &QueueSubmissionError{TaskID: taskID, Err: err}
	}
	if err := o.producer.Produce(ctx, []queue.Envelope{envelope}); err != nil {
		// The task row is already committed. Surface the failure so the
		// caller does not treat the ingestion as successful; the task id
		// is logged for reconciliation.
		log.Error().Err(err).Msg("Task committed but extraction job not queued")
		return nil, &QueueSubmissionError{TaskID: taskID, Err: err}
	}

	log.Info().
		Int("page_count", pageCount).
		Str("model", req.Model.ExternalName()).
		Msg("Extraction task created")

	return &TaskResponse{
		TaskID:         taskID,
		Status:         storage.StatusStarting,
		CreatedAt:      createdAt,
		ExpirationTime: expirationTime,
		TaskURL:        taskURL,
		Message:        "Extraction started",
		Model:          req.Model.ExternalName(),
	}, nil
}
