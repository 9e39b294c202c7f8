package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/awsl-bot/awsl-bot/internal/database"
)

type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// WindowLister reports the open chat windows of the target process.
type WindowLister interface {
	ListWindows(ctx context.Context) ([]string, error)
}

type App struct {
	SeenRepo *database.SeenMessageRepo
	TaskRepo *database.ScheduledTaskRepo
	Sender   TextSender
	Windows  WindowLister
	ChatName string
	Token    string
	Started  time.Time
}

// requireToken enforces bearer-token auth on mutating endpoints. An empty
// configured token disables auth, matching local-only deployments.
func (app *App) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.Token == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+app.Token {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	seenCount, err := app.SeenRepo.CountSeen(r.Context())
	if err != nil {
		log.Printf("failed to count seen messages: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"chat_name":      app.ChatName,
		"seen_messages":  seenCount,
		"uptime_seconds": int64(time.Since(app.Started).Seconds()),
		"server_time":    time.Now().Format(time.RFC3339),
	})
}

type sendRequest struct {
	Message string `json:"message"`
}

func (app *App) SendHandler(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := app.Sender.SendText(r.Context(), req.Message); err != nil {
		log.Printf("failed to send message via API: %v", err)
		respondError(w, http.StatusBadGateway, "failed to send message")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type windowInfo struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ListWindowsHandler lists the target process's open chat windows; the one
// the monitor watches is flagged active.
func (app *App) ListWindowsHandler(w http.ResponseWriter, r *http.Request) {
	names, err := app.Windows.ListWindows(r.Context())
	if err != nil {
		log.Printf("failed to list chat windows: %v", err)
		respondError(w, http.StatusBadGateway, "failed to list chat windows")
		return
	}

	windows := []windowInfo{}
	for _, name := range names {
		windows = append(windows, windowInfo{Name: name, Active: name == app.ChatName})
	}

	respondJSON(w, http.StatusOK, windows)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
