package content

import (
	"fmt"
	"time"
)

// Validator kinds accepted for lab flags.
const (
	ValidatorExact      = "exact"
	ValidatorRegex      = "regex"
	ValidatorFileExists = "file_exists"
)

// Question types accepted for quizzes.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionShortAnswer    = "short_answer"
)

// FlagDefinition describes a single lab flag and how to validate it.
type FlagDefinition struct {
	Name      string `yaml:"name" json:"name"`
	Prompt    string `yaml:"prompt" json:"prompt"`
	Validator string `yaml:"validator" json:"validator"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
	Pattern   string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

func (f FlagDefinition) Validate() error {
	switch f.Validator {
	case ValidatorExact:
		if f.Value == "" {
			return fmt.Errorf("flag %q: exact validator requires a value", f.Name)
		}
	case ValidatorRegex, ValidatorFileExists:
	default:
		return fmt.Errorf("flag %q: unknown validator %q", f.Name, f.Validator)
	}
	if f.Name == "" {
		return fmt.Errorf("flag without a name")
	}
	return nil
}

// LabDefinition is an immutable lab loaded from content; replaced wholesale on sync.
type LabDefinition struct {
	ID               string           `yaml:"id" json:"id"`
	Title            string           `yaml:"title" json:"title"`
	Version          string           `yaml:"version" json:"version"`
	InstructionsPath string           `yaml:"instructions" json:"instructions_path"`
	Flags            []FlagDefinition `yaml:"flags" json:"flags"`
}

func (l LabDefinition) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("lab without an id")
	}
	for _, f := range l.Flags {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("lab %q: %w", l.ID, err)
		}
	}
	return nil
}

// Flag returns the named flag, if the lab defines it.
func (l LabDefinition) Flag(name string) (FlagDefinition, bool) {
	for _, f := range l.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return FlagDefinition{}, false
}

type QuizChoice struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

type QuizQuestion struct {
	ID      string       `yaml:"id" json:"id"`
	Prompt  string       `yaml:"prompt" json:"prompt"`
	Type    string       `yaml:"type" json:"type"`
	Choices []QuizChoice `yaml:"choices,omitempty" json:"choices,omitempty"`
	Answer  string       `yaml:"answer" json:"answer"`
	Points  int          `yaml:"points" json:"points"`
}

type QuizDefinition struct {
	ID        string         `yaml:"id" json:"id"`
	Title     string         `yaml:"title" json:"title"`
	Version   string         `yaml:"version" json:"version"`
	Questions []QuizQuestion `yaml:"questions" json:"questions"`
}

func (q QuizDefinition) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("quiz without an id")
	}
	for _, question := range q.Questions {
		switch question.Type {
		case QuestionMultipleChoice, QuestionShortAnswer:
		default:
			return fmt.Errorf("quiz %q question %q: unknown type %q", q.ID, question.ID, question.Type)
		}
	}
	return nil
}

// MaxScore is the sum of every question's point value.
func (q QuizDefinition) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

type ExamStageDefinition struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	MaxScore    int    `yaml:"max_score" json:"max_score"`
}

type ExamDefinition struct {
	ID      string                `yaml:"id" json:"id"`
	Title   string                `yaml:"title" json:"title"`
	Version string                `yaml:"version" json:"version"`
	Stages  []ExamStageDefinition `yaml:"stages" json:"stages"`
}

func (e ExamDefinition) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("exam without an id")
	}
	return nil
}

// Stage returns the stage with the given id, if the exam defines it.
func (e ExamDefinition) Stage(id string) (ExamStageDefinition, bool) {
	for _, s := range e.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return ExamStageDefinition{}, false
}

// DefaultVersion is the version tag applied to definitions that do not carry one.
func DefaultVersion(now time.Time) string {
	return now.UTC().Format("2006.01.02")
}
