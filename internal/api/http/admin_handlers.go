package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cyberdefenders/cybergrader/internal/content"
	"github.com/cyberdefenders/cybergrader/internal/export"
	"github.com/cyberdefenders/cybergrader/internal/store"
)

// SyncContentHandler refreshes the content checkout and reloads every
// definition. A refresh failure still reloads from the existing checkout.
func SyncContentHandler(st store.Store, fetcher content.Fetcher, root string, opts content.SyncOpts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := content.RepoStatus{Status: "local", Source: root}
		if fetcher != nil {
			status = fetcher.Refresh(r.Context())
		}
		now := time.Now().UTC()
		opts := opts
		opts.RefreshStatus = status.Status
		opts.RefreshedAt = &now

		resp, err := content.SyncAll(st, root, opts)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// ExportScoresHandler flattens every recorded attempt and pushes the
// scoreboard to the configured sheet target. The export payload is returned
// even when the sheet push fails.
func ExportScoresHandler(st store.Store, sheets export.SheetSync) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := st.ExportAll()
		result := sheets.Sync(r.Context(), resp)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"labs":       resp.Labs,
			"quizzes":    resp.Quizzes,
			"exams":      resp.Exams,
			"sheet_sync": result,
		})
	}
}
