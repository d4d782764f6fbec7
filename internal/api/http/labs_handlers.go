package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cyberdefenders/cybergrader/internal/auth"
	"github.com/cyberdefenders/cybergrader/internal/store"
)

// requestUserID prefers the explicit user_id query parameter and falls back
// to the token subject.
func requestUserID(r *http.Request) string {
	if uid := strings.TrimSpace(r.URL.Query().Get("user_id")); uid != "" {
		return uid
	}
	return auth.SubjectFromContext(r.Context())
}

func ListLabsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := requestUserID(r)
		if uid == "" {
			http.Error(w, "user_id required", 400)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st.LabStatusForUser(uid))
	}
}

func SubmitFlagHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labID := chi.URLParam(r, "labID")
		flagName := chi.URLParam(r, "flagName")

		var req struct {
			UserID     string `json:"user_id"`
			Submission string `json:"submission"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		uid := req.UserID
		if uid == "" {
			uid = auth.SubjectFromContext(r.Context())
		}
		if uid == "" {
			http.Error(w, "user_id required", 400)
			return
		}

		lab, ok := st.Lab(labID)
		if !ok {
			http.Error(w, store.ErrUnknownLab.Error(), 404)
			return
		}
		flag, ok := lab.Flag(flagName)
		if !ok {
			http.Error(w, store.ErrUnknownFlag.Error(), 404)
			return
		}

		result := st.RecordFlagSubmission(labID, flag, uid, req.Submission)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}
