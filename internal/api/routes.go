package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers bundles the handlers mounted under /api.
type Handlers struct {
	Tasks  *TaskHandler
	Upload *UploadHandler
	Health *HealthHandler
	Stream http.Handler
}

// Mount registers the API routes on r. Nil handlers are skipped.
func (h Handlers) Mount(r chi.Router) {
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	if h.Health != nil {
		r.Get("/health", h.Health.Health)
	}
	if h.Upload != nil {
		r.Post("/upload", h.Upload.Upload)
	}
	if h.Tasks != nil {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.Tasks.ListTasks)
			r.Post("/", h.Tasks.CreateTask)
			if h.Stream != nil {
				r.Get("/stream", h.Stream.ServeHTTP)
			}
			r.Put("/{id}", h.Tasks.UpdateTask)
			r.Delete("/{id}", h.Tasks.DeleteTask)
			r.Post("/{id}/complete", h.Tasks.CompleteTask)
			r.Post("/{id}/cancel", h.Tasks.CancelTask)
		})
	}
}
