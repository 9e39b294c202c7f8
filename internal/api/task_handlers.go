package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"

	"github.com/awsl-bot/awsl-bot/internal/database"
)

type taskRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	CronExpr string `json:"cron_expr"`
	Message  string `json:"message"`
	Enabled  *bool  `json:"enabled"`
}

func (req *taskRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Message == "" {
		return "message is required"
	}
	switch req.Type {
	case "", database.TaskTypeText, database.TaskTypeImage:
	default:
		return "type must be text or image"
	}
	if _, err := cron.ParseStandard(req.CronExpr); err != nil {
		return "invalid cron expression"
	}
	return ""
}

func (req *taskRequest) taskType() string {
	if req.Type == "" {
		return database.TaskTypeText
	}
	return req.Type
}

func (app *App) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := app.TaskRepo.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	if tasks == nil {
		tasks = []*database.ScheduledTask{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (app *App) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	task := &database.ScheduledTask{
		Name:     req.Name,
		Type:     req.taskType(),
		CronExpr: req.CronExpr,
		Message:  req.Message,
		Enabled:  enabled,
	}

	if err := app.TaskRepo.Create(r.Context(), task); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

func (app *App) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := app.TaskRepo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	task.Name = req.Name
	task.Type = req.taskType()
	task.CronExpr = req.CronExpr
	task.Message = req.Message
	if req.Enabled != nil {
		task.Enabled = *req.Enabled
	}

	if err := app.TaskRepo.Update(r.Context(), task); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func (app *App) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := app.TaskRepo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := app.TaskRepo.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
