package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadLabs reads labs/*.yml under root in lexical filename order.
// Any malformed or invalid definition fails the whole load.
func LoadLabs(root string) ([]LabDefinition, error) {
	paths, err := contentFiles(root, "labs")
	if err != nil {
		return nil, err
	}
	labs := make([]LabDefinition, 0, len(paths))
	for _, path := range paths {
		var lab LabDefinition
		if err := readYAML(path, &lab); err != nil {
			return nil, err
		}
		if lab.Version == "" {
			lab.Version = DefaultVersion(time.Now())
		}
		if err := lab.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		labs = append(labs, lab)
	}
	return labs, nil
}

// LoadQuizzes reads quizzes/*.yml under root in lexical filename order.
func LoadQuizzes(root string) ([]QuizDefinition, error) {
	paths, err := contentFiles(root, "quizzes")
	if err != nil {
		return nil, err
	}
	quizzes := make([]QuizDefinition, 0, len(paths))
	for _, path := range paths {
		var quiz QuizDefinition
		if err := readYAML(path, &quiz); err != nil {
			return nil, err
		}
		if quiz.Version == "" {
			quiz.Version = DefaultVersion(time.Now())
		}
		for i := range quiz.Questions {
			if quiz.Questions[i].Points == 0 {
				quiz.Questions[i].Points = 1
			}
		}
		if err := quiz.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// LoadExams reads exams/*.yml under root in lexical filename order.
func LoadExams(root string) ([]ExamDefinition, error) {
	paths, err := contentFiles(root, "exams")
	if err != nil {
		return nil, err
	}
	exams := make([]ExamDefinition, 0, len(paths))
	for _, path := range paths {
		var exam ExamDefinition
		if err := readYAML(path, &exam); err != nil {
			return nil, err
		}
		if exam.Version == "" {
			exam.Version = DefaultVersion(time.Now())
		}
		for i := range exam.Stages {
			if exam.Stages[i].MaxScore == 0 {
				exam.Stages[i].MaxScore = 10
			}
		}
		if err := exam.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		exams = append(exams, exam)
	}
	return exams, nil
}

// ReadNote returns the body of notes/<name>.md under root.
func ReadNote(root, name string) (string, error) {
	body, err := os.ReadFile(filepath.Join(root, "notes", name+".md"))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func contentFiles(root, kind string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(root, kind, "*.yml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
