package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr string

	// Content repository. When RepoURL is empty the bundled ContentRoot is
	// served as-is.
	ContentRepoURL    string
	ContentRepoBranch string
	ContentRepoPath   string // checkout destination
	ContentRoot       string // bundled fallback
	RefreshSchedule   string
	BackupSchedule    string

	// Persistence. DatabaseURL selects Postgres; otherwise the Supabase pair
	// selects the REST backend; otherwise DBDriver/DBDSN (sqlite by default).
	DatabaseURL string
	DBDriver    string
	DBDSN       string
	SupabaseURL string
	SupabaseKey string

	AuthSecret    string
	ResetLinkBase string

	// ForwardEmail delivery; empty token falls back to console logging.
	ForwardEmailToken string
	ForwardEmailFrom  string

	// Scoreboard workbook destination; empty disables the export sync.
	SheetPath string

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		ContentRepoURL:    os.Getenv("CONTENT_REPO_URL"),
		ContentRepoBranch: envOr("CONTENT_REPO_BRANCH", "main"),
		ContentRepoPath:   envOr("CONTENT_REPO_PATH", "./content-repo"),
		ContentRoot:       envOr("CONTENT_ROOT", "./content"),
		RefreshSchedule:   envOr("REFRESH_SCHEDULE", "nightly"),
		BackupSchedule:    envOr("BACKUP_SCHEDULE", "nightly"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBDriver:    envOr("DB_DRIVER", "sqlite"),
		DBDSN:       envOr("DB_DSN", ""),
		SupabaseURL: os.Getenv("SUPABASE_URL"),
		SupabaseKey: os.Getenv("SUPABASE_KEY"),

		AuthSecret:    envOr("AUTH_SECRET", "dev-secret-change-me"),
		ResetLinkBase: envOr("RESET_LINK_BASE", "http://localhost:3000/reset-password"),

		ForwardEmailToken: os.Getenv("FORWARDEMAIL_TOKEN"),
		ForwardEmailFrom:  os.Getenv("FORWARDEMAIL_FROM"),

		SheetPath: os.Getenv("SHEET_PATH"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
