package store

import (
	"errors"
	"time"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

// Lookup failures surfaced to handlers as 404s.
var (
	ErrUnknownLab   = errors.New("unknown lab")
	ErrUnknownFlag  = errors.New("unknown flag")
	ErrUnknownQuiz  = errors.New("unknown quiz")
	ErrUnknownExam  = errors.New("unknown exam")
	ErrUnknownStage = errors.New("unknown exam stage")
)

// FlagSubmissionResult is one immutable ledger entry for a flag attempt.
type FlagSubmissionResult struct {
	UserID      string    `json:"user_id"`
	LabID       string    `json:"lab_id"`
	FlagName    string    `json:"flag_name"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// QuizSubmissionResult is one immutable ledger entry for a quiz attempt.
type QuizSubmissionResult struct {
	UserID      string    `json:"user_id"`
	QuizID      string    `json:"quiz_id"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ExamSubmissionResult is one immutable ledger entry for an exam stage attempt.
type ExamSubmissionResult struct {
	UserID      string    `json:"user_id"`
	ExamID      string    `json:"exam_id"`
	StageID     string    `json:"stage_id"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// LabFlagPrompt is the student-safe view of a flag: no expected value.
type LabFlagPrompt struct {
	Name      string `json:"name"`
	Prompt    string `json:"prompt"`
	Validator string `json:"validator"`
	Pattern   string `json:"pattern,omitempty"`
}

// LabStatus is derived on read from the ledger, never stored.
type LabStatus struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Version      string          `json:"version"`
	Instructions string          `json:"instructions"`
	Score        int             `json:"score"`
	TotalFlags   int             `json:"total_flags"`
	Flags        []LabFlagPrompt `json:"flags"`
}

// DashboardSummary is everything a student's dashboard shows.
type DashboardSummary struct {
	Labs    []LabStatus            `json:"labs"`
	Quizzes []QuizSubmissionResult `json:"quizzes"`
	Exams   []ExamSubmissionResult `json:"exams"`
}

// ExportResponse flattens every attempt across every user.
type ExportResponse struct {
	Labs    []FlagSubmissionResult `json:"labs"`
	Quizzes []QuizSubmissionResult `json:"quizzes"`
	Exams   []ExamSubmissionResult `json:"exams"`
}

// Store is the facade consumed by request handlers. All three implementations
// (memory, SQL, Supabase) must produce identical aggregation results for
// identical write sequences.
type Store interface {
	SetLabs([]content.LabDefinition)
	SetQuizzes([]content.QuizDefinition)
	SetExams([]content.ExamDefinition)

	Lab(id string) (content.LabDefinition, bool)
	Quiz(id string) (content.QuizDefinition, bool)
	Exam(id string) (content.ExamDefinition, bool)
	Quizzes() []content.QuizDefinition
	Exams() []content.ExamDefinition

	RecordFlagSubmission(labID string, flag content.FlagDefinition, userID, submission string) FlagSubmissionResult
	RecordQuizSubmission(quiz content.QuizDefinition, userID string, answers map[string]string) QuizSubmissionResult
	RecordExamSubmission(exam content.ExamDefinition, userID, stageID string, answers map[string]string) (ExamSubmissionResult, error)

	LabStatusForUser(userID string) []LabStatus
	QuizHistoryForUser(userID string) []QuizSubmissionResult
	ExamHistoryForUser(userID string) []ExamSubmissionResult
	DashboardForUser(userID string) DashboardSummary
	ExportAll() ExportResponse
}
