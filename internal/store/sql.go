package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cyberdefenders/cybergrader/internal/content"
	"github.com/cyberdefenders/cybergrader/internal/db"
)

const dbTimeout = 5 * time.Second

// PersistingStore wraps a CoreStore with a durable SQL mirror. The core is
// always the read-of-record: every write hits the core first and its result
// is returned regardless of what the database does. When initialisation
// fails the store keeps running memory-only and only logs the degradation.
type PersistingStore struct {
	core    *CoreStore
	db      *sql.DB
	enabled bool
	log     *slog.Logger
}

// NewPersistingStore ensures the schema and hydrates the core from durable
// tables. Backend failures never propagate to the caller.
func NewPersistingStore(ctx context.Context, core *CoreStore, sqldb *sql.DB, driver db.Driver, log *slog.Logger) *PersistingStore {
	if log == nil {
		log = slog.Default()
	}
	s := &PersistingStore{core: core, db: sqldb, log: log}
	if sqldb == nil {
		log.Warn("sql store disabled: no database handle; operating in-memory only")
		return s
	}
	if err := db.EnsureSchema(ctx, sqldb, driver); err != nil {
		log.Error("sql store initialisation failed; operating in-memory only", "error", err)
		return s
	}
	if err := s.hydrate(ctx); err != nil {
		log.Error("sql store hydration failed; operating in-memory only", "error", err)
		return s
	}
	s.enabled = true
	return s
}

// Enabled reports whether durable writes are active.
func (s *PersistingStore) Enabled() bool { return s.enabled }

// Content management ------------------------------------------------------

func (s *PersistingStore) SetLabs(labs []content.LabDefinition) {
	s.core.SetLabs(labs)
	if !s.enabled {
		return
	}
	for _, lab := range labs {
		flags, err := json.Marshal(lab.Flags)
		if err != nil {
			s.log.Error("encode lab flags", "lab", lab.ID, "error", err)
			continue
		}
		s.exec(`INSERT INTO labs (id,title,version,instructions_path,flags)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, version=EXCLUDED.version,
			  instructions_path=EXCLUDED.instructions_path, flags=EXCLUDED.flags`,
			lab.ID, lab.Title, lab.Version, lab.InstructionsPath, string(flags))
	}
}

func (s *PersistingStore) SetQuizzes(quizzes []content.QuizDefinition) {
	s.core.SetQuizzes(quizzes)
	if !s.enabled {
		return
	}
	for _, quiz := range quizzes {
		questions, err := json.Marshal(quiz.Questions)
		if err != nil {
			s.log.Error("encode quiz questions", "quiz", quiz.ID, "error", err)
			continue
		}
		s.exec(`INSERT INTO quizzes (id,title,version,questions)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, version=EXCLUDED.version,
			  questions=EXCLUDED.questions`,
			quiz.ID, quiz.Title, quiz.Version, string(questions))
	}
}

func (s *PersistingStore) SetExams(exams []content.ExamDefinition) {
	s.core.SetExams(exams)
	if !s.enabled {
		return
	}
	for _, exam := range exams {
		stages, err := json.Marshal(exam.Stages)
		if err != nil {
			s.log.Error("encode exam stages", "exam", exam.ID, "error", err)
			continue
		}
		s.exec(`INSERT INTO exams (id,title,version,stages)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, version=EXCLUDED.version,
			  stages=EXCLUDED.stages`,
			exam.ID, exam.Title, exam.Version, string(stages))
	}
}

// Submissions -------------------------------------------------------------

func (s *PersistingStore) RecordFlagSubmission(labID string, flag content.FlagDefinition, userID, submission string) FlagSubmissionResult {
	result := s.core.RecordFlagSubmission(labID, flag, userID, submission)
	if s.enabled {
		s.exec(`INSERT INTO lab_submissions (user_id,lab_id,flag_name,correct,submitted_at)
			VALUES ($1,$2,$3,$4,$5)`,
			result.UserID, result.LabID, result.FlagName, result.Correct, result.SubmittedAt)
	}
	return result
}

func (s *PersistingStore) RecordQuizSubmission(quiz content.QuizDefinition, userID string, answers map[string]string) QuizSubmissionResult {
	result := s.core.RecordQuizSubmission(quiz, userID, answers)
	if s.enabled {
		s.exec(`INSERT INTO quiz_submissions (user_id,quiz_id,score,max_score,submitted_at)
			VALUES ($1,$2,$3,$4,$5)`,
			result.UserID, result.QuizID, result.Score, result.MaxScore, result.SubmittedAt)
	}
	return result
}

func (s *PersistingStore) RecordExamSubmission(exam content.ExamDefinition, userID, stageID string, answers map[string]string) (ExamSubmissionResult, error) {
	result, err := s.core.RecordExamSubmission(exam, userID, stageID, answers)
	if err != nil {
		return ExamSubmissionResult{}, err
	}
	if s.enabled {
		s.exec(`INSERT INTO exam_submissions (user_id,exam_id,stage_id,score,max_score,submitted_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			result.UserID, result.ExamID, result.StageID, result.Score, result.MaxScore, result.SubmittedAt)
	}
	return result, nil
}

// Reads delegate straight to the core.

func (s *PersistingStore) Lab(id string) (content.LabDefinition, bool)  { return s.core.Lab(id) }
func (s *PersistingStore) Quiz(id string) (content.QuizDefinition, bool) {
	return s.core.Quiz(id)
}
func (s *PersistingStore) Exam(id string) (content.ExamDefinition, bool) {
	return s.core.Exam(id)
}
func (s *PersistingStore) Quizzes() []content.QuizDefinition { return s.core.Quizzes() }
func (s *PersistingStore) Exams() []content.ExamDefinition   { return s.core.Exams() }

func (s *PersistingStore) LabStatusForUser(userID string) []LabStatus {
	return s.core.LabStatusForUser(userID)
}
func (s *PersistingStore) QuizHistoryForUser(userID string) []QuizSubmissionResult {
	return s.core.QuizHistoryForUser(userID)
}
func (s *PersistingStore) ExamHistoryForUser(userID string) []ExamSubmissionResult {
	return s.core.ExamHistoryForUser(userID)
}
func (s *PersistingStore) DashboardForUser(userID string) DashboardSummary {
	return s.core.DashboardForUser(userID)
}
func (s *PersistingStore) ExportAll() ExportResponse { return s.core.ExportAll() }

// Internal helpers --------------------------------------------------------

// exec runs one durable write with a bounded timeout. Failures are logged
// and swallowed: the in-memory result already stands.
func (s *PersistingStore) exec(query string, args ...any) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.Error("durable write failed; in-memory state retained", "error", err)
	}
}

func (s *PersistingStore) hydrate(ctx context.Context) error {
	labs, err := s.loadLabs(ctx)
	if err != nil {
		return err
	}
	quizzes, err := s.loadQuizzes(ctx)
	if err != nil {
		return err
	}
	exams, err := s.loadExams(ctx)
	if err != nil {
		return err
	}
	s.core.SetLabs(labs)
	s.core.SetQuizzes(quizzes)
	s.core.SetExams(exams)

	if err := s.loadFlagSubmissions(ctx); err != nil {
		return err
	}
	if err := s.loadQuizSubmissions(ctx); err != nil {
		return err
	}
	if err := s.loadExamSubmissions(ctx); err != nil {
		return err
	}
	s.log.Info("sql store hydrated", "labs", len(labs), "quizzes", len(quizzes), "exams", len(exams))
	return nil
}

func (s *PersistingStore) loadLabs(ctx context.Context) ([]content.LabDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,version,instructions_path,flags FROM labs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labs []content.LabDefinition
	for rows.Next() {
		var lab content.LabDefinition
		var flags string
		if err := rows.Scan(&lab.ID, &lab.Title, &lab.Version, &lab.InstructionsPath, &flags); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(flags), &lab.Flags); err != nil {
			return nil, err
		}
		labs = append(labs, lab)
	}
	return labs, rows.Err()
}

func (s *PersistingStore) loadQuizzes(ctx context.Context) ([]content.QuizDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,version,questions FROM quizzes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var quizzes []content.QuizDefinition
	for rows.Next() {
		var quiz content.QuizDefinition
		var questions string
		if err := rows.Scan(&quiz.ID, &quiz.Title, &quiz.Version, &questions); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(questions), &quiz.Questions); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *PersistingStore) loadExams(ctx context.Context) ([]content.ExamDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,version,stages FROM exams`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []content.ExamDefinition
	for rows.Next() {
		var exam content.ExamDefinition
		var stages string
		if err := rows.Scan(&exam.ID, &exam.Title, &exam.Version, &stages); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stages), &exam.Stages); err != nil {
			return nil, err
		}
		exams = append(exams, exam)
	}
	return exams, rows.Err()
}

func (s *PersistingStore) loadFlagSubmissions(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id,lab_id,flag_name,correct,submitted_at FROM lab_submissions ORDER BY submitted_at`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r FlagSubmissionResult
		if err := rows.Scan(&r.UserID, &r.LabID, &r.FlagName, &r.Correct, &r.SubmittedAt); err != nil {
			return err
		}
		s.core.restoreFlagResult(r)
	}
	return rows.Err()
}

func (s *PersistingStore) loadQuizSubmissions(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id,quiz_id,score,max_score,submitted_at FROM quiz_submissions ORDER BY submitted_at`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r QuizSubmissionResult
		if err := rows.Scan(&r.UserID, &r.QuizID, &r.Score, &r.MaxScore, &r.SubmittedAt); err != nil {
			return err
		}
		s.core.restoreQuizResult(r)
	}
	return rows.Err()
}

func (s *PersistingStore) loadExamSubmissions(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id,exam_id,stage_id,score,max_score,submitted_at FROM exam_submissions ORDER BY submitted_at`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r ExamSubmissionResult
		if err := rows.Scan(&r.UserID, &r.ExamID, &r.StageID, &r.Score, &r.MaxScore, &r.SubmittedAt); err != nil {
			return err
		}
		s.core.restoreExamResult(r)
	}
	return rows.Err()
}
