package grading

import (
	"testing"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

func sampleQuiz() content.QuizDefinition {
	return content.QuizDefinition{
		ID:    "quiz-networking",
		Title: "Networking Basics",
		Questions: []content.QuizQuestion{
			{
				ID:     "q1",
				Type:   content.QuestionMultipleChoice,
				Answer: "b",
				Points: 2,
				Choices: []content.QuizChoice{
					{Key: "a", Label: "21"}, {Key: "b", Label: "22"}, {Key: "c", Label: "23"},
				},
			},
			{ID: "q2", Type: content.QuestionShortAnswer, Answer: "Paris", Points: 3},
		},
	}
}

func TestScoreQuiz(t *testing.T) {
	quiz := sampleQuiz()

	cases := []struct {
		name    string
		answers map[string]string
		want    int
	}{
		{"all correct", map[string]string{"q1": "b", "q2": "Paris"}, 5},
		{"short answer ignores case", map[string]string{"q1": "b", "q2": "  paris "}, 5},
		{"multiple choice is exact", map[string]string{"q1": "B", "q2": "paris"}, 3},
		{"partial", map[string]string{"q1": "a", "q2": "Paris"}, 3},
		{"unanswered questions score zero", map[string]string{"q2": "Paris"}, 3},
		{"no answers", map[string]string{}, 0},
		{"nil answers", nil, 0},
		{"unknown question ids ignored", map[string]string{"q9": "b"}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, maxScore := ScoreQuiz(quiz, tc.answers)
			if maxScore != 5 {
				t.Fatalf("maxScore = %d, want 5", maxScore)
			}
			if score != tc.want {
				t.Fatalf("score = %d, want %d", score, tc.want)
			}
		})
	}
}

func TestScoreExamStage(t *testing.T) {
	stage := content.ExamStageDefinition{ID: "recon", MaxScore: 10}

	cases := []struct {
		name    string
		answers map[string]string
		want    int
	}{
		{"non-blank answer earns full credit", map[string]string{"notes": "scanned 10.0.0.0/24"}, 10},
		{"blank answers earn nothing", map[string]string{"notes": "   "}, 0},
		{"empty map earns nothing", map[string]string{}, 0},
		{"one non-blank among blanks", map[string]string{"a": "", "b": "\t", "c": "done"}, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, maxScore := ScoreExamStage(stage, tc.answers)
			if maxScore != 10 {
				t.Fatalf("maxScore = %d, want 10", maxScore)
			}
			if score != tc.want {
				t.Fatalf("score = %d, want %d", score, tc.want)
			}
		})
	}
}
