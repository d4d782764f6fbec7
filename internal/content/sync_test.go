package content

import "testing"

type recordingSetter struct {
	labs    [][]LabDefinition
	quizzes [][]QuizDefinition
	exams   [][]ExamDefinition
}

func (r *recordingSetter) SetLabs(l []LabDefinition)     { r.labs = append(r.labs, l) }
func (r *recordingSetter) SetQuizzes(q []QuizDefinition) { r.quizzes = append(r.quizzes, q) }
func (r *recordingSetter) SetExams(e []ExamDefinition)   { r.exams = append(r.exams, e) }

func TestSyncAll(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "labs/lab.yml", labYAML)
	writeContent(t, root, "quizzes/quiz.yml", `
id: quiz-1
title: Quiz
questions:
  - id: q1
    type: short_answer
    answer: Paris
`)

	var setter recordingSetter
	resp, err := SyncAll(&setter, root, SyncOpts{RepoBranch: "main", RefreshStatus: "updated"})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if resp.Labs != 1 || resp.Quizzes != 1 || resp.Exams != 0 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/0", resp.Labs, resp.Quizzes, resp.Exams)
	}
	if resp.RepoBranch != "main" || resp.RefreshStatus != "updated" {
		t.Fatalf("provenance not carried through: %+v", resp)
	}
	if resp.RefreshedAt == nil {
		t.Fatal("RefreshedAt not populated")
	}
	if len(setter.labs) != 1 || len(setter.quizzes) != 1 || len(setter.exams) != 1 {
		t.Fatalf("expected one full replacement per kind, got %d/%d/%d",
			len(setter.labs), len(setter.quizzes), len(setter.exams))
	}
}

func TestSyncAllAbortsBeforeTouchingStore(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "labs/lab.yml", labYAML)
	writeContent(t, root, "quizzes/broken.yml", "id: [not a scalar")

	var setter recordingSetter
	if _, err := SyncAll(&setter, root, SyncOpts{}); err == nil {
		t.Fatal("expected sync error for broken quiz file")
	}
	if len(setter.labs)+len(setter.quizzes)+len(setter.exams) != 0 {
		t.Fatal("store was touched despite the load failure")
	}
}

func TestSyncAllIdempotent(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "labs/lab.yml", labYAML)

	var setter recordingSetter
	first, err := SyncAll(&setter, root, SyncOpts{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := SyncAll(&setter, root, SyncOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Labs != second.Labs || first.Quizzes != second.Quizzes || first.Exams != second.Exams {
		t.Fatalf("repeat sync changed counts: %+v vs %+v", first, second)
	}
}
