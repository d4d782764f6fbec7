package content

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLocalFetcher(t *testing.T) {
	f := &LocalFetcher{Root: "/srv/content"}

	root, status := f.Prepare(context.Background())
	if root != "/srv/content" || status.Status != "local" {
		t.Fatalf("Prepare = %q %+v", root, status)
	}
	if status := f.Refresh(context.Background()); status.Status != "local" {
		t.Fatalf("Refresh = %+v", status)
	}
}

func TestGitFetcherRefreshWithoutCheckout(t *testing.T) {
	f := &GitFetcher{
		URL:       "https://example.com/content.git",
		Branch:    "main",
		TargetDir: filepath.Join(t.TempDir(), "checkout"),
	}
	status := f.Refresh(context.Background())
	if status.Status != "missing" {
		t.Fatalf("status = %q, want missing", status.Status)
	}
}
