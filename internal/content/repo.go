package content

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// RepoStatus describes the outcome of a fetch or refresh. It is a value, not
// an error: callers decide how much they care.
type RepoStatus struct {
	Status      string     `json:"status"` // cloned|updated|skipped|missing|local|error
	Branch      string     `json:"branch,omitempty"`
	Source      string     `json:"source,omitempty"`
	Message     string     `json:"message,omitempty"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
}

// Fetcher keeps a local content root up to date with an external source.
type Fetcher interface {
	// Prepare ensures the content root exists and returns its path.
	Prepare(ctx context.Context) (string, RepoStatus)
	// Refresh pulls the latest content into the root.
	Refresh(ctx context.Context) RepoStatus
}

// GitFetcher clones and fast-forwards a git-backed content repository.
type GitFetcher struct {
	URL       string
	Branch    string
	TargetDir string
	Log       *slog.Logger
}

func (g *GitFetcher) logger() *slog.Logger {
	if g.Log != nil {
		return g.Log
	}
	return slog.Default()
}

func (g *GitFetcher) Prepare(ctx context.Context) (string, RepoStatus) {
	if _, err := os.Stat(filepath.Join(g.TargetDir, ".git")); err == nil {
		return g.TargetDir, g.Refresh(ctx)
	}
	if err := os.MkdirAll(filepath.Dir(g.TargetDir), 0o755); err != nil {
		return g.TargetDir, RepoStatus{Status: "error", Branch: g.Branch, Source: g.URL, Message: err.Error()}
	}

	status := RepoStatus{Status: "cloned", Branch: g.Branch, Source: g.URL}
	out, err := g.run(ctx, "", "clone", "--depth", "1", "--branch", g.Branch, g.URL, g.TargetDir)
	if err != nil {
		g.logger().Error("content repo clone failed", "url", g.URL, "error", err, "output", out)
		status.Status = "error"
		status.Message = out
		return g.TargetDir, status
	}
	now := time.Now().UTC()
	status.RefreshedAt = &now
	return g.TargetDir, status
}

func (g *GitFetcher) Refresh(ctx context.Context) RepoStatus {
	status := RepoStatus{Status: "skipped", Branch: g.Branch, Source: g.URL}
	if _, err := os.Stat(filepath.Join(g.TargetDir, ".git")); err != nil {
		status.Status = "missing"
		status.Message = "repository has not been cloned yet"
		return status
	}

	steps := [][]string{
		{"fetch", "origin", g.Branch},
		{"checkout", g.Branch},
		{"reset", "--hard", "origin/" + g.Branch},
	}
	for _, args := range steps {
		out, err := g.run(ctx, g.TargetDir, args...)
		if err != nil {
			g.logger().Error("content repo refresh failed", "step", args[0], "error", err, "output", out)
			status.Status = "error"
			status.Message = out
			return status
		}
	}
	now := time.Now().UTC()
	status.Status = "updated"
	status.RefreshedAt = &now
	return status
}

func (g *GitFetcher) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// LocalFetcher serves content from a directory that is already on disk.
type LocalFetcher struct {
	Root string
}

func (l *LocalFetcher) Prepare(context.Context) (string, RepoStatus) {
	return l.Root, RepoStatus{Status: "local", Source: l.Root}
}

func (l *LocalFetcher) Refresh(context.Context) RepoStatus {
	return RepoStatus{Status: "local", Source: l.Root}
}
