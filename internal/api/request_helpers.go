package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
)

// taskIDParam is the route parameter holding a task ID.
const taskIDParam = "id"

// pathTaskID reads the task ID from the route. A missing or malformed ID
// wraps domain.ErrInvalidID, which the API reports as an unknown task.
func pathTaskID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, taskIDParam)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError(taskIDParam, "is required", domain.ErrInvalidID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(taskIDParam, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}
