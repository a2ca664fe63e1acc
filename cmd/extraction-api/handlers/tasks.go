package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/docmill/extraction-engine/cmd/extraction-api/middleware"
	"github.com/docmill/extraction-engine/internal/observability"
	"github.com/docmill/extraction-engine/internal/storage"
)

// TasksHandler serves task lookup and listing requests.
type TasksHandler struct {
	logger *observability.Logger
	tasks  *storage.TaskRepository
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(logger *observability.Logger, tasks *storage.TaskRepository) *TasksHandler {
	return &TasksHandler{logger: logger, tasks: tasks}
}

// GetTask handles GET /api/v1/task/{taskId}. Lookups are scoped to the
// authenticated tenant key; another tenant's task reads as not found.
func (h *TasksHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiKey := middleware.APIKeyFromContext(ctx)
	taskID := chi.URLParam(r, "taskId")

	task, err := h.tasks.GetByID(ctx, apiKey, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found", "")
			return
		}
		h.logger.WithContext(ctx).WithTenant(apiKey).Error().Err(err).Msg("Task lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// ListTasks handles GET /api/v1/tasks?page=N&limit=M, newest first.
func (h *TasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiKey := middleware.APIKeyFromContext(ctx)

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	tasks, err := h.tasks.ListByAPIKey(ctx, apiKey, page, limit)
	if err != nil {
		h.logger.WithContext(ctx).WithTenant(apiKey).Error().Err(err).Msg("Task listing failed")
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	if tasks == nil {
		tasks = []*storage.Task{}
	}

	writeJSON(w, http.StatusOK, tasks)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
