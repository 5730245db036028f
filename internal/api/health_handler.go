package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/bubbletasks/internal/api/shared"
	"github.com/phrazzld/bubbletasks/internal/service"
)

// HealthHandler reports server and storage health.
type HealthHandler struct {
	taskService service.TaskService
	backend     string
	now         func() time.Time
	logger      *slog.Logger
}

// NewHealthHandler creates a HealthHandler. backend names the configured
// storage backend in the response.
func NewHealthHandler(taskService service.TaskService, backend string, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		taskService: taskService,
		backend:     backend,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "health_handler")),
	}
}

// Health handles GET /health. An unreachable store yields 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.taskService.Ping(r.Context()); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Storage unavailable", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Success:   true,
		Message:   "BubbleTasks API is running",
		Timestamp: h.now().UTC(),
		Storage:   h.backend,
	})
}

// NotFound answers unknown endpoints with a JSON 404.
func NotFound(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithError(w, r, http.StatusNotFound, "Endpoint not found")
}

// MethodNotAllowed answers known paths hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
