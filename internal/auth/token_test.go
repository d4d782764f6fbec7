package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyberdefenders/cybergrader/internal/rbac"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("test-secret")
	raw, err := tokens.Issue("user-1", "alice@student.edu", "student")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "alice@student.edu" || claims.Role != "student" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokenService("secret-a").Issue("user-1", "a@b.c", "student")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenService("secret-b").Parse(raw); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestJWTMiddleware(t *testing.T) {
	tokens := NewTokenService("test-secret")
	var gotSub, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	})
	handler := JWTMiddleware(tokens)(next)

	// no header
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/labs", nil))
	if rec.Code != 401 {
		t.Fatalf("missing header: status = %d, want 401", rec.Code)
	}

	// garbage token
	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/labs", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	handler.ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}

	// valid token attaches identity and role
	raw, err := tokens.Issue("user-1", "alice@student.edu", "student")
	if err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/labs", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
	if gotSub != "user-1" || gotRole != "student" {
		t.Fatalf("context carried sub=%q role=%q", gotSub, gotRole)
	}
}
