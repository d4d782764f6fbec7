package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cyberdefenders/cybergrader/internal/auth"
	"github.com/cyberdefenders/cybergrader/internal/rbac"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func LoginHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Email == "" {
			http.Error(w, "email required", 400)
			return
		}
		u, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				http.Error(w, "invalid credentials", 401)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		token, err := svc.Tokens().Issue(u.ID, u.Email, u.Role)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"token": token, "user": u})
	}
}

func SignupHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email and password required", 400)
			return
		}
		u, err := svc.Signup(r.Context(), req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrNoDatabase):
				http.Error(w, "signup requires a configured database", 503)
			case errors.Is(err, auth.ErrUserExists):
				http.Error(w, "account already exists", 409)
			default:
				http.Error(w, err.Error(), 500)
			}
			return
		}
		token, err := svc.Tokens().Issue(u.ID, u.Email, u.Role)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"token": token, "user": u})
	}
}

// RequestResetHandler always answers ok so callers cannot probe for accounts.
func RequestResetHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := svc.RequestPasswordReset(r.Context(), req.Email); err != nil &&
			!errors.Is(err, auth.ErrNoDatabase) {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func PerformResetHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Token == "" || req.Password == "" {
			http.Error(w, "token and password required", 400)
			return
		}
		if err := svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
			switch {
			case errors.Is(err, auth.ErrBadResetToken):
				http.Error(w, "invalid or expired token", 400)
			case errors.Is(err, auth.ErrNoDatabase):
				http.Error(w, "reset requires a configured database", 503)
			default:
				http.Error(w, err.Error(), 500)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func MeHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		if sub == "" {
			http.Error(w, "unauthenticated", 401)
			return
		}
		u, err := svc.UserByID(r.Context(), sub)
		if err != nil {
			if errors.Is(err, auth.ErrNoDatabase) {
				// demo mode: identity lives entirely in the token
				u = auth.User{
					ID:    sub,
					Email: auth.EmailFromContext(r.Context()),
					Role:  rbac.RoleFromContext(r.Context()),
				}
			} else if errors.Is(err, auth.ErrUserNotFound) {
				http.Error(w, "unknown user", 404)
				return
			} else {
				http.Error(w, err.Error(), 500)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(u)
	}
}

func StudentIDHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		if sub == "" {
			http.Error(w, "unauthenticated", 401)
			return
		}
		var req struct {
			StudentID string `json:"student_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.StudentID == "" {
			http.Error(w, "student_id required", 400)
			return
		}
		if err := svc.SetStudentID(r.Context(), sub, req.StudentID); err != nil {
			switch {
			case errors.Is(err, auth.ErrStudentIDTaken):
				http.Error(w, "student id is already in use", 409)
			case errors.Is(err, auth.ErrNoDatabase):
				http.Error(w, "student id requires a configured database", 503)
			default:
				http.Error(w, err.Error(), 500)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
