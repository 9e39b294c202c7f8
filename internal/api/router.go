package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", app.HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(app.requireToken)

		r.Post("/api/send", app.SendHandler)
		r.Get("/api/windows", app.ListWindowsHandler)

		r.Get("/api/tasks", app.ListTasksHandler)
		r.Post("/api/tasks", app.CreateTaskHandler)
		r.Put("/api/tasks/{id}", app.UpdateTaskHandler)
		r.Delete("/api/tasks/{id}", app.DeleteTaskHandler)
	})

	return r
}
