package export

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cyberdefenders/cybergrader/internal/store"
)

func sampleExport() store.ExportResponse {
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return store.ExportResponse{
		Labs: []store.FlagSubmissionResult{
			{UserID: "alice", LabID: "lab-1", FlagName: "flag1", Correct: false, SubmittedAt: t0},
			{UserID: "alice", LabID: "lab-1", FlagName: "flag1", Correct: true, SubmittedAt: t0.Add(time.Minute)},
			{UserID: "alice", LabID: "lab-1", FlagName: "flag1", Correct: true, SubmittedAt: t0.Add(2 * time.Minute)},
			{UserID: "alice", LabID: "lab-1", FlagName: "flag2", Correct: true, SubmittedAt: t0.Add(3 * time.Minute)},
			{UserID: "bob", LabID: "lab-1", FlagName: "flag1", Correct: true, SubmittedAt: t0.Add(4 * time.Minute)},
		},
		Quizzes: []store.QuizSubmissionResult{
			{UserID: "alice", QuizID: "quiz-1", Score: 2, MaxScore: 5, SubmittedAt: t0},
			{UserID: "alice", QuizID: "quiz-1", Score: 4, MaxScore: 5, SubmittedAt: t0.Add(time.Hour)},
		},
		Exams: []store.ExamSubmissionResult{
			{UserID: "bob", ExamID: "exam-1", StageID: "recon", Score: 10, MaxScore: 10, SubmittedAt: t0},
		},
	}
}

func TestScoresMatrix(t *testing.T) {
	rows := scoresMatrix(sampleExport())

	wantHeader := []string{"user_id", "lab:lab-1", "quiz:quiz-1 (5)", "exam:exam-1 (10)"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Fatalf("header = %v, want %v", rows[0], wantHeader)
	}
	// users sorted, repeat correct attempts counted once, best quiz score kept
	wantAlice := []string{"alice", "2", "4", "0"}
	wantBob := []string{"bob", "1", "0", "10"}
	if !reflect.DeepEqual(rows[1], wantAlice) {
		t.Fatalf("alice row = %v, want %v", rows[1], wantAlice)
	}
	if !reflect.DeepEqual(rows[2], wantBob) {
		t.Fatalf("bob row = %v, want %v", rows[2], wantBob)
	}
}

func TestAttemptRowLayouts(t *testing.T) {
	export := sampleExport()

	labs := labRows(export)
	if len(labs) != len(export.Labs)+1 {
		t.Fatalf("lab rows = %d, want %d", len(labs), len(export.Labs)+1)
	}
	if labs[1][3] != "FALSE" || labs[2][3] != "TRUE" {
		t.Fatalf("correct column not rendered as TRUE/FALSE: %v %v", labs[1], labs[2])
	}

	quizzes := quizRows(export)
	if quizzes[1][2] != "2" || quizzes[1][3] != "5" {
		t.Fatalf("quiz row = %v", quizzes[1])
	}

	exams := examRows(export)
	if exams[1][2] != "recon" || exams[1][3] != "10" {
		t.Fatalf("exam row = %v", exams[1])
	}
}

func TestNoopSheetSync(t *testing.T) {
	res := NoopSheetSync{}.Sync(context.Background(), sampleExport())
	if res.Status != "skipped" {
		t.Fatalf("status = %q, want skipped", res.Status)
	}
}

func TestXLSXSheetSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	sync := NewXLSXSheetSync(path, nil)

	export := sampleExport()
	res := sync.Sync(context.Background(), export)
	if res.Status != "success" {
		t.Fatalf("status = %q (%s), want success", res.Status, res.Message)
	}
	wantRows := len(export.Labs) + len(export.Quizzes) + len(export.Exams)
	if res.RowsWritten != wantRows {
		t.Fatalf("rows written = %d, want %d", res.RowsWritten, wantRows)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Scores", "Labs", "Quizzes", "Exams", "Meta"} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Fatalf("sheet %q missing", sheet)
		}
	}
	rows, err := f.GetRows("Labs")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(export.Labs)+1 {
		t.Fatalf("Labs sheet rows = %d, want %d", len(rows), len(export.Labs)+1)
	}
}

func TestXLSXSheetSyncWithoutPath(t *testing.T) {
	res := NewXLSXSheetSync("", nil).Sync(context.Background(), store.ExportResponse{})
	if res.Status != "skipped" {
		t.Fatalf("status = %q, want skipped", res.Status)
	}
}
