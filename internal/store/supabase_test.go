package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cyberdefenders/cybergrader/internal/content"
)

// fakePostgrest is an in-memory /rest/v1 endpoint: GET returns stored rows,
// POST appends (or merges when the Prefer header asks for it).
type fakePostgrest struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	// header assertions
	sawKey    bool
	sawBearer bool
	prefers   []string
}

func newFakePostgrest() *fakePostgrest {
	return &fakePostgrest{tables: map[string][]map[string]any{}}
}

func (f *fakePostgrest) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Header.Get("apikey") != "" {
			f.sawKey = true
		}
		if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			f.sawBearer = true
		}

		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			rows := f.tables[table]
			if rows == nil {
				rows = []map[string]any{}
			}
			_ = json.NewEncoder(w).Encode(rows)
		case http.MethodPost:
			f.prefers = append(f.prefers, r.Header.Get("Prefer"))
			var payload any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			switch rows := payload.(type) {
			case []any:
				for _, row := range rows {
					f.upsert(table, row.(map[string]any))
				}
			case map[string]any:
				f.tables[table] = append(f.tables[table], rows)
			}
			w.WriteHeader(201)
		default:
			http.Error(w, "unsupported", 405)
		}
	}
}

func (f *fakePostgrest) upsert(table string, row map[string]any) {
	id, _ := row["id"].(string)
	for i, existing := range f.tables[table] {
		if existing["id"] == id {
			f.tables[table][i] = row
			return
		}
	}
	f.tables[table] = append(f.tables[table], row)
}

func TestSupabaseClientValidation(t *testing.T) {
	if _, err := NewSupabaseClient("", "key"); err == nil {
		t.Fatal("empty url accepted")
	}
	if _, err := NewSupabaseClient("https://proj.supabase.co", ""); err == nil {
		t.Fatal("empty key accepted")
	}
	if _, err := NewSupabaseClient("https://proj.supabase.co", "key"); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestSupabaseStoreRoundTrip(t *testing.T) {
	fake := newFakePostgrest()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewSupabaseClient(srv.URL, "service-key")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	root := t.TempDir()

	first := NewSupabaseStore(ctx, NewCoreStore(root), client, nil)
	if !first.Enabled() {
		t.Fatal("store not enabled with a client")
	}

	lab := fixtureLab()
	first.SetLabs([]content.LabDefinition{lab})
	flag, _ := lab.Flag("flag1")
	first.RecordFlagSubmission(lab.ID, flag, "alice", "wrong")
	first.RecordFlagSubmission(lab.ID, flag, "alice", "FLAG{abc}")

	if !fake.sawKey || !fake.sawBearer {
		t.Fatal("apikey / bearer headers not sent")
	}
	sawMerge := false
	for _, p := range fake.prefers {
		if strings.Contains(p, "resolution=merge-duplicates") {
			sawMerge = true
		}
	}
	if !sawMerge {
		t.Fatalf("no merge-duplicates upsert observed in %v", fake.prefers)
	}

	// restart against the same remote state
	second := NewSupabaseStore(ctx, NewCoreStore(root), client, nil)
	got, ok := second.Lab(lab.ID)
	if !ok {
		t.Fatal("lab missing after rehydration")
	}
	if len(got.Flags) != 2 {
		t.Fatalf("flags lost in round trip: %+v", got.Flags)
	}
	if st := second.LabStatusForUser("alice")[0]; st.Score != 1 {
		t.Fatalf("hydrated score = %d, want 1", st.Score)
	}
}

func TestSupabaseStoreRepeatSyncKeepsOneRowPerLab(t *testing.T) {
	fake := newFakePostgrest()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewSupabaseClient(srv.URL, "service-key")
	if err != nil {
		t.Fatal(err)
	}
	s := NewSupabaseStore(context.Background(), NewCoreStore(t.TempDir()), client, nil)

	lab := fixtureLab()
	s.SetLabs([]content.LabDefinition{lab})
	s.SetLabs([]content.LabDefinition{lab})

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if n := len(fake.tables["labs"]); n != 1 {
		t.Fatalf("labs rows = %d, want 1", n)
	}
}

func TestSupabaseStoreWithoutClientBehavesAsMemory(t *testing.T) {
	s := NewSupabaseStore(context.Background(), NewCoreStore(t.TempDir()), nil, nil)
	if s.Enabled() {
		t.Fatal("store claims durability without a client")
	}

	lab := fixtureLab()
	s.SetLabs([]content.LabDefinition{lab})
	flag, _ := lab.Flag("flag1")
	if r := s.RecordFlagSubmission(lab.ID, flag, "alice", "FLAG{abc}"); !r.Correct {
		t.Fatal("grading must not depend on the backend")
	}
	if st := s.LabStatusForUser("alice")[0]; st.Score != 1 {
		t.Fatalf("memory fallback score = %d, want 1", st.Score)
	}
}
