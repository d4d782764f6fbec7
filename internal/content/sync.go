package content

import "time"

// Setter is the slice of the store surface sync needs: full replacement of
// the three definition maps.
type Setter interface {
	SetLabs([]LabDefinition)
	SetQuizzes([]QuizDefinition)
	SetExams([]ExamDefinition)
}

// SyncResponse reports counts and provenance for one sync pass.
type SyncResponse struct {
	Labs            int        `json:"labs"`
	Quizzes         int        `json:"quizzes"`
	Exams           int        `json:"exams"`
	Version         string     `json:"version"`
	ContentSource   string     `json:"content_source,omitempty"`
	RepoBranch      string     `json:"repo_branch,omitempty"`
	RefreshStatus   string     `json:"refresh_status,omitempty"`
	RefreshSchedule string     `json:"refresh_schedule,omitempty"`
	BackupSchedule  string     `json:"backup_schedule,omitempty"`
	RefreshedAt     *time.Time `json:"refreshed_at,omitempty"`
}

// SyncOpts carries provenance metadata through to the response.
type SyncOpts struct {
	ContentSource   string
	RepoBranch      string
	RefreshStatus   string
	RefreshSchedule string
	BackupSchedule  string
	RefreshedAt     *time.Time
}

// SyncAll loads every definition under root and replaces the store's maps
// atomically. A parse or validation error in any file aborts the sync before
// the store is touched, so a failed sync leaves the previous content in place.
func SyncAll(store Setter, root string, opts SyncOpts) (SyncResponse, error) {
	labs, err := LoadLabs(root)
	if err != nil {
		return SyncResponse{}, err
	}
	quizzes, err := LoadQuizzes(root)
	if err != nil {
		return SyncResponse{}, err
	}
	exams, err := LoadExams(root)
	if err != nil {
		return SyncResponse{}, err
	}

	store.SetLabs(labs)
	store.SetQuizzes(quizzes)
	store.SetExams(exams)

	refreshedAt := opts.RefreshedAt
	if refreshedAt == nil {
		now := time.Now().UTC()
		refreshedAt = &now
	}
	source := opts.ContentSource
	if source == "" {
		source = root
	}
	return SyncResponse{
		Labs:            len(labs),
		Quizzes:         len(quizzes),
		Exams:           len(exams),
		Version:         DefaultVersion(time.Now()),
		ContentSource:   source,
		RepoBranch:      opts.RepoBranch,
		RefreshStatus:   opts.RefreshStatus,
		RefreshSchedule: opts.RefreshSchedule,
		BackupSchedule:  opts.BackupSchedule,
		RefreshedAt:     refreshedAt,
	}, nil
}
