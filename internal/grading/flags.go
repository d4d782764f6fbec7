package grading

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

// FlagChecker decides whether one submission satisfies one flag definition.
type FlagChecker interface {
	Check(flag content.FlagDefinition, submission string) bool
}

// FlagGrader routes by validator kind to the matching checker. Unknown kinds
// fail closed.
type FlagGrader struct {
	checkers map[string]FlagChecker
}

// NewFlagGrader installs the built-in checkers. contentRoot anchors
// file_exists lookups.
func NewFlagGrader(contentRoot string) *FlagGrader {
	return &FlagGrader{
		checkers: map[string]FlagChecker{
			content.ValidatorExact:      exactChecker{},
			content.ValidatorRegex:      regexChecker{},
			content.ValidatorFileExists: fileExistsChecker{root: contentRoot},
		},
	}
}

func (g *FlagGrader) Check(flag content.FlagDefinition, submission string) bool {
	c, ok := g.checkers[flag.Validator]
	if !ok {
		return false
	}
	return c.Check(flag, submission)
}

type exactChecker struct{}

func (exactChecker) Check(flag content.FlagDefinition, submission string) bool {
	return strings.TrimSpace(submission) == strings.TrimSpace(flag.Value)
}

type regexChecker struct{}

// Check requires the whole trimmed submission to match, not a substring.
func (regexChecker) Check(flag content.FlagDefinition, submission string) bool {
	if flag.Pattern == "" {
		return false
	}
	re, err := regexp.Compile(`\A(?:` + flag.Pattern + `)\z`)
	if err != nil {
		return false
	}
	return re.MatchString(strings.TrimSpace(submission))
}

type fileExistsChecker struct{ root string }

func (c fileExistsChecker) Check(_ content.FlagDefinition, submission string) bool {
	_, err := os.Stat(filepath.Join(c.root, filepath.Clean(submission)))
	return err == nil
}
