package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cyberdefenders/cybergrader/internal/auth"
	"github.com/cyberdefenders/cybergrader/internal/content"
	"github.com/cyberdefenders/cybergrader/internal/store"
)

// Student-safe quiz views: expected answers never leave the server.
type quizQuestionView struct {
	ID      string               `json:"id"`
	Prompt  string               `json:"prompt"`
	Type    string               `json:"type"`
	Choices []content.QuizChoice `json:"choices,omitempty"`
	Points  int                  `json:"points"`
}

type quizView struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Version   string             `json:"version"`
	MaxScore  int                `json:"max_score"`
	Questions []quizQuestionView `json:"questions"`
}

func viewQuiz(q content.QuizDefinition) quizView {
	v := quizView{
		ID:        q.ID,
		Title:     q.Title,
		Version:   q.Version,
		MaxScore:  q.MaxScore(),
		Questions: make([]quizQuestionView, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		v.Questions = append(v.Questions, quizQuestionView{
			ID:      question.ID,
			Prompt:  question.Prompt,
			Type:    question.Type,
			Choices: question.Choices,
			Points:  question.Points,
		})
	}
	return v
}

func ListQuizzesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizzes := st.Quizzes()
		out := make([]quizView, 0, len(quizzes))
		for _, q := range quizzes {
			out = append(out, viewQuiz(q))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func SubmitQuizHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")

		var req struct {
			UserID  string            `json:"user_id"`
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

		quiz, ok := st.Quiz(quizID)
		if !ok {
			http.Error(w, store.ErrUnknownQuiz.Error(), 404)
			return
		}

		result := st.RecordQuizSubmission(quiz, uid, req.Answers)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}
