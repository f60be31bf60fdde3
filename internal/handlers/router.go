package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter регистрирует маршруты доски, ws может быть nil
func NewRouter(h *TaskHandler, ws http.Handler, middlewares ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", h.HealthCheck)
	r.Get("/board", h.GetBoard)
	r.Get("/statistics", h.GetStatistics)
	r.Get("/priority-types", h.GetPriorityTypes)
	r.Get("/task-status-types", h.GetStatusTypes)
	r.Get("/notifications", h.GetNotifications)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.GetTasks)               // GET /tasks
		r.Post("/", h.PostTask)              // POST /tasks
		r.Post("/bulk-delete", h.BulkDelete) // POST /tasks/bulk-delete

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTaskByID)          // GET /tasks/{id}
			r.Put("/", h.UpdateTaskByID)       // PUT /tasks/{id}
			r.Delete("/", h.DeleteTaskByID)    // DELETE /tasks/{id}
			r.Patch("/status", h.ChangeStatus) // PATCH /tasks/{id}/status
		})
	})

	if h.Prefs != nil {
		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.PutPreferences)
	}
	if ws != nil {
		r.Handle("/ws", ws)
	}
	return r
}
