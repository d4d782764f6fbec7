package store

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cyberdefenders/cybergrader/internal/content"
	"github.com/cyberdefenders/cybergrader/internal/grading"
)

type attemptKey struct {
	userID   string
	labID    string
	flagName string
}

// CoreStore is the canonical in-memory store. All aggregation logic lives
// here; the persistent adapters wrap it and treat it as the read-of-record.
type CoreStore struct {
	mu          sync.RWMutex
	contentRoot string
	grader      *grading.FlagGrader

	labs    map[string]content.LabDefinition
	quizzes map[string]content.QuizDefinition
	exams   map[string]content.ExamDefinition

	labAttempts  map[attemptKey][]FlagSubmissionResult
	quizAttempts map[string][]QuizSubmissionResult
	examAttempts map[string][]ExamSubmissionResult
}

func NewCoreStore(contentRoot string) *CoreStore {
	return &CoreStore{
		contentRoot:  contentRoot,
		grader:       grading.NewFlagGrader(contentRoot),
		labs:         map[string]content.LabDefinition{},
		quizzes:      map[string]content.QuizDefinition{},
		exams:        map[string]content.ExamDefinition{},
		labAttempts:  map[attemptKey][]FlagSubmissionResult{},
		quizAttempts: map[string][]QuizSubmissionResult{},
		examAttempts: map[string][]ExamSubmissionResult{},
	}
}

// Content management ------------------------------------------------------

func (s *CoreStore) SetLabs(labs []content.LabDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labs = make(map[string]content.LabDefinition, len(labs))
	for _, lab := range labs {
		s.labs[lab.ID] = lab
	}
}

func (s *CoreStore) SetQuizzes(quizzes []content.QuizDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes = make(map[string]content.QuizDefinition, len(quizzes))
	for _, quiz := range quizzes {
		s.quizzes[quiz.ID] = quiz
	}
}

func (s *CoreStore) SetExams(exams []content.ExamDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams = make(map[string]content.ExamDefinition, len(exams))
	for _, exam := range exams {
		s.exams[exam.ID] = exam
	}
}

func (s *CoreStore) Lab(id string) (content.LabDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lab, ok := s.labs[id]
	return lab, ok
}

func (s *CoreStore) Quiz(id string) (content.QuizDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	return quiz, ok
}

func (s *CoreStore) Exam(id string) (content.ExamDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exam, ok := s.exams[id]
	return exam, ok
}

// Quizzes lists all quizzes sorted by id so responses are reproducible.
func (s *CoreStore) Quizzes() []content.QuizDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]content.QuizDefinition, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		out = append(out, quiz)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *CoreStore) Exams() []content.ExamDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]content.ExamDefinition, 0, len(s.exams))
	for _, exam := range s.exams {
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Submissions -------------------------------------------------------------

func (s *CoreStore) RecordFlagSubmission(labID string, flag content.FlagDefinition, userID, submission string) FlagSubmissionResult {
	result := FlagSubmissionResult{
		UserID:      userID,
		LabID:       labID,
		FlagName:    flag.Name,
		Correct:     s.grader.Check(flag, submission),
		SubmittedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{userID, labID, flag.Name}
	s.labAttempts[key] = append(s.labAttempts[key], result)
	return result
}

func (s *CoreStore) RecordQuizSubmission(quiz content.QuizDefinition, userID string, answers map[string]string) QuizSubmissionResult {
	score, maxScore := grading.ScoreQuiz(quiz, answers)
	result := QuizSubmissionResult{
		UserID:      userID,
		QuizID:      quiz.ID,
		Score:       score,
		MaxScore:    maxScore,
		SubmittedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizAttempts[userID] = append(s.quizAttempts[userID], result)
	return result
}

func (s *CoreStore) RecordExamSubmission(exam content.ExamDefinition, userID, stageID string, answers map[string]string) (ExamSubmissionResult, error) {
	stage, ok := exam.Stage(stageID)
	if !ok {
		return ExamSubmissionResult{}, ErrUnknownStage
	}
	score, maxScore := grading.ScoreExamStage(stage, answers)
	result := ExamSubmissionResult{
		UserID:      userID,
		ExamID:      exam.ID,
		StageID:     stage.ID,
		Score:       score,
		MaxScore:    maxScore,
		SubmittedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examAttempts[userID] = append(s.examAttempts[userID], result)
	return result, nil
}

// Aggregation -------------------------------------------------------------

// LabStatusForUser recomputes every lab's status from the ledger. The score
// is best-of-all-time: a flag counts once it has ever been answered correctly.
func (s *CoreStore) LabStatusForUser(userID string) []LabStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]LabStatus, 0, len(s.labs))
	for _, lab := range s.labs {
		prompts := make([]LabFlagPrompt, 0, len(lab.Flags))
		for _, flag := range lab.Flags {
			prompts = append(prompts, LabFlagPrompt{
				Name:      flag.Name,
				Prompt:    flag.Prompt,
				Validator: flag.Validator,
				Pattern:   flag.Pattern,
			})
		}
		statuses = append(statuses, LabStatus{
			ID:           lab.ID,
			Title:        lab.Title,
			Version:      lab.Version,
			Instructions: s.readInstructions(lab.InstructionsPath),
			Score:        s.labScoreLocked(userID, lab),
			TotalFlags:   len(lab.Flags),
			Flags:        prompts,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

func (s *CoreStore) labScoreLocked(userID string, lab content.LabDefinition) int {
	score := 0
	for _, flag := range lab.Flags {
		attempts := s.labAttempts[attemptKey{userID, lab.ID, flag.Name}]
		for _, attempt := range attempts {
			if attempt.Correct {
				score++
				break
			}
		}
	}
	return score
}

func (s *CoreStore) readInstructions(path string) string {
	if path == "" {
		return "Instructions not found"
	}
	body, err := os.ReadFile(filepath.Join(s.contentRoot, filepath.Clean(path)))
	if err != nil {
		return "Instructions not found"
	}
	return string(body)
}

func (s *CoreStore) QuizHistoryForUser(userID string) []QuizSubmissionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]QuizSubmissionResult(nil), s.quizAttempts[userID]...)
}

func (s *CoreStore) ExamHistoryForUser(userID string) []ExamSubmissionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ExamSubmissionResult(nil), s.examAttempts[userID]...)
}

func (s *CoreStore) DashboardForUser(userID string) DashboardSummary {
	return DashboardSummary{
		Labs:    s.LabStatusForUser(userID),
		Quizzes: s.QuizHistoryForUser(userID),
		Exams:   s.ExamHistoryForUser(userID),
	}
}

// ExportAll flattens every attempt across every user, ordered by submission
// time then user id so repeated exports are reproducible.
func (s *CoreStore) ExportAll() ExportResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var export ExportResponse
	for _, attempts := range s.labAttempts {
		export.Labs = append(export.Labs, attempts...)
	}
	for _, attempts := range s.quizAttempts {
		export.Quizzes = append(export.Quizzes, attempts...)
	}
	for _, attempts := range s.examAttempts {
		export.Exams = append(export.Exams, attempts...)
	}

	sort.Slice(export.Labs, func(i, j int) bool {
		a, b := export.Labs[i], export.Labs[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.LabID != b.LabID {
			return a.LabID < b.LabID
		}
		return a.FlagName < b.FlagName
	})
	sort.Slice(export.Quizzes, func(i, j int) bool {
		a, b := export.Quizzes[i], export.Quizzes[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.QuizID < b.QuizID
	})
	sort.Slice(export.Exams, func(i, j int) bool {
		a, b := export.Exams[i], export.Exams[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.ExamID != b.ExamID {
			return a.ExamID < b.ExamID
		}
		return a.StageID < b.StageID
	})
	return export
}

// Hydration ---------------------------------------------------------------
// Used by persistent adapters to replay durable attempts at startup without
// re-grading them.

func (s *CoreStore) restoreFlagResult(r FlagSubmissionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{r.UserID, r.LabID, r.FlagName}
	s.labAttempts[key] = append(s.labAttempts[key], r)
}

func (s *CoreStore) restoreQuizResult(r QuizSubmissionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizAttempts[r.UserID] = append(s.quizAttempts[r.UserID], r)
}

func (s *CoreStore) restoreExamResult(r ExamSubmissionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examAttempts[r.UserID] = append(s.examAttempts[r.UserID], r)
}
