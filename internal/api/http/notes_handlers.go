package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

func NoteHandler(root func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		body, err := content.ReadNote(root(), name)
		if err != nil {
			http.Error(w, "note not found", 404)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func HealthzHandler(persistent func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if persistent() {
			_, _ = w.Write([]byte(`{"status":"ok","persistence":"durable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","persistence":"memory"}`))
	}
}
