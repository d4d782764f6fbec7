package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

// SupabaseClient is a minimal PostgREST client: select, insert and
// merge-upsert against /rest/v1 tables.
type SupabaseClient struct {
	BaseURL string
	Key     string
	HTTP    *http.Client
}

// NewSupabaseClient validates the project URL; it does not touch the network.
func NewSupabaseClient(projectURL, key string) (*SupabaseClient, error) {
	u, err := url.Parse(projectURL)
	if err != nil {
		return nil, fmt.Errorf("supabase url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase url %q: missing scheme or host", projectURL)
	}
	if key == "" {
		return nil, errors.New("supabase key is required")
	}
	return &SupabaseClient{
		BaseURL: strings.TrimSuffix(projectURL, "/"),
		Key:     key,
		HTTP:    &http.Client{Timeout: dbTimeout},
	}, nil
}

func (c *SupabaseClient) Select(ctx context.Context, table string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/rest/v1/"+table+"?select=*", nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(table, resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Upsert merges rows by primary key, so repeated syncs with unchanged
// content are no-ops on the remote side.
func (c *SupabaseClient) Upsert(ctx context.Context, table string, rows any) error {
	return c.post(ctx, table, rows, "resolution=merge-duplicates,return=minimal")
}

func (c *SupabaseClient) Insert(ctx context.Context, table string, row any) error {
	return c.post(ctx, table, row, "return=minimal")
}

func (c *SupabaseClient) post(ctx context.Context, table string, body any, prefer string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/rest/v1/"+table, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", prefer)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return c.statusError(table, resp)
	}
	return nil
}

func (c *SupabaseClient) authorize(req *http.Request) {
	req.Header.Set("apikey", c.Key)
	req.Header.Set("Authorization", "Bearer "+c.Key)
}

func (c *SupabaseClient) statusError(table string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("supabase %s: %s: %s", table, resp.Status, strings.TrimSpace(string(body)))
}

// Row shapes for the remote tables.

type labRow struct {
	ID               string                   `json:"id"`
	Title            string                   `json:"title"`
	Version          string                   `json:"version"`
	InstructionsPath string                   `json:"instructions_path"`
	Flags            []content.FlagDefinition `json:"flags"`
}

type quizRow struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Version   string                 `json:"version"`
	Questions []content.QuizQuestion `json:"questions"`
}

type examRow struct {
	ID      string                        `json:"id"`
	Title   string                        `json:"title"`
	Version string                        `json:"version"`
	Stages  []content.ExamStageDefinition `json:"stages"`
}

// SupabaseStore mirrors the CoreStore into a Supabase project. Same contract
// as PersistingStore: core first, durable write best-effort with logging,
// pure in-memory fallback when the client cannot be built.
type SupabaseStore struct {
	core   *CoreStore
	client *SupabaseClient
	log    *slog.Logger
}

// NewSupabaseStore hydrates the core from the remote tables. A nil client
// (construction failure upstream) leaves the store memory-only.
func NewSupabaseStore(ctx context.Context, core *CoreStore, client *SupabaseClient, log *slog.Logger) *SupabaseStore {
	if log == nil {
		log = slog.Default()
	}
	s := &SupabaseStore{core: core, client: client, log: log}
	if client == nil {
		log.Warn("supabase store disabled: no client; operating in-memory only")
		return s
	}
	s.hydrate(ctx)
	return s
}

// Enabled reports whether durable writes are active.
func (s *SupabaseStore) Enabled() bool { return s.client != nil }

func (s *SupabaseStore) hydrate(ctx context.Context) {
	var labRows []labRow
	if err := s.client.Select(ctx, "labs", &labRows); err != nil {
		s.log.Error("hydrate labs", "error", err)
	}
	labs := make([]content.LabDefinition, 0, len(labRows))
	for _, row := range labRows {
		labs = append(labs, content.LabDefinition{
			ID: row.ID, Title: row.Title, Version: row.Version,
			InstructionsPath: row.InstructionsPath, Flags: row.Flags,
		})
	}
	s.core.SetLabs(labs)

	var quizRows []quizRow
	if err := s.client.Select(ctx, "quizzes", &quizRows); err != nil {
		s.log.Error("hydrate quizzes", "error", err)
	}
	quizzes := make([]content.QuizDefinition, 0, len(quizRows))
	for _, row := range quizRows {
		quizzes = append(quizzes, content.QuizDefinition{
			ID: row.ID, Title: row.Title, Version: row.Version, Questions: row.Questions,
		})
	}
	s.core.SetQuizzes(quizzes)

	var examRows []examRow
	if err := s.client.Select(ctx, "exams", &examRows); err != nil {
		s.log.Error("hydrate exams", "error", err)
	}
	exams := make([]content.ExamDefinition, 0, len(examRows))
	for _, row := range examRows {
		exams = append(exams, content.ExamDefinition{
			ID: row.ID, Title: row.Title, Version: row.Version, Stages: row.Stages,
		})
	}
	s.core.SetExams(exams)

	var flagResults []FlagSubmissionResult
	if err := s.client.Select(ctx, "lab_submissions", &flagResults); err != nil {
		s.log.Error("hydrate lab submissions", "error", err)
	}
	for _, r := range flagResults {
		s.core.restoreFlagResult(r)
	}

	var quizResults []QuizSubmissionResult
	if err := s.client.Select(ctx, "quiz_submissions", &quizResults); err != nil {
		s.log.Error("hydrate quiz submissions", "error", err)
	}
	for _, r := range quizResults {
		s.core.restoreQuizResult(r)
	}

	var examResults []ExamSubmissionResult
	if err := s.client.Select(ctx, "exam_submissions", &examResults); err != nil {
		s.log.Error("hydrate exam submissions", "error", err)
	}
	for _, r := range examResults {
		s.core.restoreExamResult(r)
	}

	s.log.Info("supabase store hydrated", "labs", len(labs), "quizzes", len(quizzes), "exams", len(exams))
}

// Content management ------------------------------------------------------

func (s *SupabaseStore) SetLabs(labs []content.LabDefinition) {
	s.core.SetLabs(labs)
	if s.client == nil || len(labs) == 0 {
		return
	}
	rows := make([]labRow, 0, len(labs))
	for _, lab := range labs {
		rows = append(rows, labRow{
			ID: lab.ID, Title: lab.Title, Version: lab.Version,
			InstructionsPath: lab.InstructionsPath, Flags: lab.Flags,
		})
	}
	s.write("labs", func(ctx context.Context) error { return s.client.Upsert(ctx, "labs", rows) })
}

func (s *SupabaseStore) SetQuizzes(quizzes []content.QuizDefinition) {
	s.core.SetQuizzes(quizzes)
	if s.client == nil || len(quizzes) == 0 {
		return
	}
	rows := make([]quizRow, 0, len(quizzes))
	for _, quiz := range quizzes {
		rows = append(rows, quizRow{ID: quiz.ID, Title: quiz.Title, Version: quiz.Version, Questions: quiz.Questions})
	}
	s.write("quizzes", func(ctx context.Context) error { return s.client.Upsert(ctx, "quizzes", rows) })
}

func (s *SupabaseStore) SetExams(exams []content.ExamDefinition) {
	s.core.SetExams(exams)
	if s.client == nil || len(exams) == 0 {
		return
	}
	rows := make([]examRow, 0, len(exams))
	for _, exam := range exams {
		rows = append(rows, examRow{ID: exam.ID, Title: exam.Title, Version: exam.Version, Stages: exam.Stages})
	}
	s.write("exams", func(ctx context.Context) error { return s.client.Upsert(ctx, "exams", rows) })
}

// Submissions -------------------------------------------------------------

func (s *SupabaseStore) RecordFlagSubmission(labID string, flag content.FlagDefinition, userID, submission string) FlagSubmissionResult {
	result := s.core.RecordFlagSubmission(labID, flag, userID, submission)
	if s.client != nil {
		s.write("lab_submissions", func(ctx context.Context) error {
			return s.client.Insert(ctx, "lab_submissions", result)
		})
	}
	return result
}

func (s *SupabaseStore) RecordQuizSubmission(quiz content.QuizDefinition, userID string, answers map[string]string) QuizSubmissionResult {
	result := s.core.RecordQuizSubmission(quiz, userID, answers)
	if s.client != nil {
		s.write("quiz_submissions", func(ctx context.Context) error {
			return s.client.Insert(ctx, "quiz_submissions", result)
		})
	}
	return result
}

func (s *SupabaseStore) RecordExamSubmission(exam content.ExamDefinition, userID, stageID string, answers map[string]string) (ExamSubmissionResult, error) {
	result, err := s.core.RecordExamSubmission(exam, userID, stageID, answers)
	if err != nil {
		return ExamSubmissionResult{}, err
	}
	if s.client != nil {
		s.write("exam_submissions", func(ctx context.Context) error {
			return s.client.Insert(ctx, "exam_submissions", result)
		})
	}
	return result, nil
}

// Reads delegate straight to the core.

func (s *SupabaseStore) Lab(id string) (content.LabDefinition, bool) { return s.core.Lab(id) }
func (s *SupabaseStore) Quiz(id string) (content.QuizDefinition, bool) {
	return s.core.Quiz(id)
}
func (s *SupabaseStore) Exam(id string) (content.ExamDefinition, bool) {
	return s.core.Exam(id)
}
func (s *SupabaseStore) Quizzes() []content.QuizDefinition { return s.core.Quizzes() }
func (s *SupabaseStore) Exams() []content.ExamDefinition   { return s.core.Exams() }

func (s *SupabaseStore) LabStatusForUser(userID string) []LabStatus {
	return s.core.LabStatusForUser(userID)
}
func (s *SupabaseStore) QuizHistoryForUser(userID string) []QuizSubmissionResult {
	return s.core.QuizHistoryForUser(userID)
}
func (s *SupabaseStore) ExamHistoryForUser(userID string) []ExamSubmissionResult {
	return s.core.ExamHistoryForUser(userID)
}
func (s *SupabaseStore) DashboardForUser(userID string) DashboardSummary {
	return s.core.DashboardForUser(userID)
}
func (s *SupabaseStore) ExportAll() ExportResponse { return s.core.ExportAll() }

func (s *SupabaseStore) write(table string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.log.Error("supabase write failed; in-memory state retained", "table", table, "error", err)
	}
}
