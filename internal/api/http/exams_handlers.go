package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cyberdefenders/cybergrader/internal/auth"
	"github.com/cyberdefenders/cybergrader/internal/store"
)

func ListExamsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st.Exams())
	}
}

func SubmitExamHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")

		var req struct {
			UserID  string            `json:"user_id"`
			StageID string            `json:"stage_id"`
			Answers map[string]string `json:"answers"`
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
		if req.StageID == "" {
			http.Error(w, "stage_id required", 400)
			return
		}

		exam, ok := st.Exam(examID)
		if !ok {
			http.Error(w, store.ErrUnknownExam.Error(), 404)
			return
		}

		result, err := st.RecordExamSubmission(exam, uid, req.StageID, req.Answers)
		if err != nil {
			if errors.Is(err, store.ErrUnknownStage) {
				http.Error(w, err.Error(), 404)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}
