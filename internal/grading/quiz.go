package grading

import (
	"strings"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

// ScoreQuiz grades a full quiz submission. answers maps question id to the
// submitted answer; questions with no entry score zero. Returns the earned
// score and the quiz's maximum.
func ScoreQuiz(quiz content.QuizDefinition, answers map[string]string) (score, maxScore int) {
	maxScore = quiz.MaxScore()
	for _, q := range quiz.Questions {
		submitted, ok := answers[q.ID]
		if !ok {
			continue
		}
		if quizAnswerCorrect(q, submitted) {
			score += q.Points
		}
	}
	return score, maxScore
}

func quizAnswerCorrect(q content.QuizQuestion, submitted string) bool {
	if q.Type == content.QuestionMultipleChoice {
		return submitted == q.Answer
	}
	// short_answer: trim- and case-insensitive
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(q.Answer))
}
