package grading

import (
	"strings"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

// ScoreExamStage applies the stage grading policy: full credit when any
// submitted answer is non-blank, zero otherwise. This is intentionally a
// participation check until per-stage answer keys exist in content.
func ScoreExamStage(stage content.ExamStageDefinition, answers map[string]string) (score, maxScore int) {
	maxScore = stage.MaxScore
	for _, answer := range answers {
		if strings.TrimSpace(answer) != "" {
			return maxScore, maxScore
		}
	}
	return 0, maxScore
}
