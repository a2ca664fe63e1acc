package ingest

import "fmt"

// The pipeline's failure modes past validation and admission. Validation
// failures surface as pdfproc.ErrInvalidDocument and quota rejections as
// *meter.QuotaExceededError; the types below cover the side-effecting
// steps.

// StorageUploadError indicates the artifact upload failed; the pipeline
// stops before any database write.
type StorageUploadError struct {
	Location string
	Err      error
}

func (e *StorageUploadError) Error() string {
	return fmt.Sprintf("storage upload to %s failed: %v", e.Location, e.Err)
}

func (e *StorageUploadError) Unwrap() error { return e.Err }

// TransactionError indicates the task/file/usage transaction rolled back.
// The uploaded object is orphaned unless the compensating delete succeeds.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("task transaction failed: %v", e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// QueueSubmissionError indicates the extraction job could not be queued
// after the task committed. The task exists in Starting state with no
// queued work; callers must not treat the ingestion as successful.
type QueueSubmissionError struct {
	TaskID string
	Err    error
}

func (e *QueueSubmissionError) Error() string {
	return fmt.Sprintf("queue submission for task %s failed: %v", e.TaskID, e.Err)
}

func (e *QueueSubmissionError) Unwrap() error { return e.Err }
