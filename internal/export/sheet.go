package export

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cyberdefenders/cybergrader/internal/store"
)

// SheetSyncResult is a status value, never an error: callers surface it in
// the export response and move on.
type SheetSyncResult struct {
	Status      string `json:"status"` // success|skipped|error
	Target      string `json:"target,omitempty"`
	RowsWritten int    `json:"rows_written"`
	Message     string `json:"message,omitempty"`
}

// SheetSync pushes an export payload to an external scoreboard.
type SheetSync interface {
	Sync(ctx context.Context, export store.ExportResponse) SheetSyncResult
}

// NoopSheetSync reports skipped; used when no sheet target is configured.
type NoopSheetSync struct{}

func (NoopSheetSync) Sync(context.Context, store.ExportResponse) SheetSyncResult {
	return SheetSyncResult{Status: "skipped", Message: "sheet export is not configured"}
}

// Per-sheet header layouts.
var (
	labHeader  = []string{"user_id", "lab_id", "flag_name", "correct", "submitted_at"}
	quizHeader = []string{"user_id", "quiz_id", "score", "max_score", "submitted_at"}
	examHeader = []string{"user_id", "exam_id", "stage_id", "score", "max_score", "submitted_at"}
)

func labRows(export store.ExportResponse) [][]string {
	rows := [][]string{labHeader}
	for _, r := range export.Labs {
		correct := "FALSE"
		if r.Correct {
			correct = "TRUE"
		}
		rows = append(rows, []string{r.UserID, r.LabID, r.FlagName, correct, r.SubmittedAt.Format(time.RFC3339)})
	}
	return rows
}

func quizRows(export store.ExportResponse) [][]string {
	rows := [][]string{quizHeader}
	for _, r := range export.Quizzes {
		rows = append(rows, []string{r.UserID, r.QuizID, strconv.Itoa(r.Score), strconv.Itoa(r.MaxScore), r.SubmittedAt.Format(time.RFC3339)})
	}
	return rows
}

func examRows(export store.ExportResponse) [][]string {
	rows := [][]string{examHeader}
	for _, r := range export.Exams {
		rows = append(rows, []string{r.UserID, r.ExamID, r.StageID, strconv.Itoa(r.Score), strconv.Itoa(r.MaxScore), r.SubmittedAt.Format(time.RFC3339)})
	}
	return rows
}

// scoresMatrix builds one row per user with per-lab correct-flag counts and
// best quiz/exam scores. Columns are sorted by item id so the sheet layout
// is stable between exports.
func scoresMatrix(export store.ExportResponse) [][]string {
	users := map[string]struct{}{}
	labIDs := map[string]struct{}{}
	quizMax := map[string]int{}
	examMax := map[string]int{}

	for _, r := range export.Labs {
		users[r.UserID] = struct{}{}
		labIDs[r.LabID] = struct{}{}
	}
	for _, r := range export.Quizzes {
		users[r.UserID] = struct{}{}
		if r.MaxScore > quizMax[r.QuizID] {
			quizMax[r.QuizID] = r.MaxScore
		}
	}
	for _, r := range export.Exams {
		users[r.UserID] = struct{}{}
		if r.MaxScore > examMax[r.ExamID] {
			examMax[r.ExamID] = r.MaxScore
		}
	}

	labCols := sortedKeys(labIDs)
	quizCols := sortedIntKeys(quizMax)
	examCols := sortedIntKeys(examMax)

	header := []string{"user_id"}
	for _, id := range labCols {
		header = append(header, "lab:"+id)
	}
	for _, id := range quizCols {
		header = append(header, fmt.Sprintf("quiz:%s (%d)", id, quizMax[id]))
	}
	for _, id := range examCols {
		header = append(header, fmt.Sprintf("exam:%s (%d)", id, examMax[id]))
	}

	type userItem struct{ user, item string }
	// a flag counts once per user no matter how many correct attempts exist
	solved := map[userItem]map[string]struct{}{}
	for _, r := range export.Labs {
		if !r.Correct {
			continue
		}
		k := userItem{r.UserID, r.LabID}
		if solved[k] == nil {
			solved[k] = map[string]struct{}{}
		}
		solved[k][r.FlagName] = struct{}{}
	}
	labScores := map[userItem]int{}
	for k, flags := range solved {
		labScores[k] = len(flags)
	}
	quizScores := map[userItem]int{}
	for _, r := range export.Quizzes {
		k := userItem{r.UserID, r.QuizID}
		if r.Score > quizScores[k] {
			quizScores[k] = r.Score
		}
	}
	examScores := map[userItem]int{}
	for _, r := range export.Exams {
		k := userItem{r.UserID, r.ExamID}
		if r.Score > examScores[k] {
			examScores[k] = r.Score
		}
	}

	rows := [][]string{header}
	for _, user := range sortedKeys(users) {
		row := []string{user}
		for _, id := range labCols {
			row = append(row, strconv.Itoa(labScores[userItem{user, id}]))
		}
		for _, id := range quizCols {
			row = append(row, strconv.Itoa(quizScores[userItem{user, id}]))
		}
		for _, id := range examCols {
			row = append(row, strconv.Itoa(examScores[userItem{user, id}]))
		}
		rows = append(rows, row)
	}
	return rows
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedIntKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
