package auth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrStudentIDTaken     = errors.New("student id is already in use")
	ErrNoDatabase         = errors.New("database not configured")
	ErrBadResetToken      = errors.New("invalid or expired reset token")
	ErrUserNotFound       = errors.New("user not found")
)

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	StudentID string `json:"student_id,omitempty"`
}

// Service manages accounts in the users table. With no database it degrades
// to the demo login map so memory-only deployments still work.
type Service struct {
	db            *sql.DB
	tokens        *TokenService
	notifier      Notifier
	resetLinkBase string
	log           *slog.Logger
}

func NewService(db *sql.DB, tokens *TokenService, notifier Notifier, resetLinkBase string, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = ConsoleNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{db: db, tokens: tokens, notifier: notifier, resetLinkBase: resetLinkBase, log: log}
}

func (s *Service) Tokens() *TokenService { return s.tokens }

// demoRoles backs the database-free demo deployment.
var demoRoles = map[string]string{
	"alice@student.edu": "student",
	"sam@staff.edu":     "staff",
	"ada@admin.edu":     "admin",
}

// Signup creates a student account. Re-signup with a matching password acts
// as a login so the endpoint is idempotent.
func (s *Service) Signup(ctx context.Context, email, password string) (User, error) {
	if s.db == nil {
		return User{}, ErrNoDatabase
	}
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var u User
	var studentID sql.NullString
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, password_hash, role)
		 VALUES ($1, $2, $3, 'student')
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id, email, role, student_id`,
		uuid.NewString(), email, string(hash),
	).Scan(&u.ID, &u.Email, &u.Role, &studentID)
	if err == nil {
		u.StudentID = studentID.String
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, err
	}

	// Email taken: treat as login when the password matches.
	existing, hashStored, err := s.userByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hashStored), []byte(password)) != nil {
		return User{}, ErrUserExists
	}
	return existing, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if s.db == nil {
		// demo mode: any password, role from the demo map
		role, ok := demoRoles[email]
		if !ok {
			role = "student"
		}
		id := email
		if at := strings.IndexByte(email, '@'); at > 0 {
			id = email[:at]
		}
		return User{ID: id, Email: email, Role: role}, nil
	}
	u, hashStored, err := s.userByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hashStored), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) UserByID(ctx context.Context, id string) (User, error) {
	if s.db == nil {
		return User{}, ErrNoDatabase
	}
	var u User
	var studentID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, role, student_id FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Email, &u.Role, &studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.StudentID = studentID.String
	return u, nil
}

func (s *Service) SetStudentID(ctx context.Context, userID, studentID string) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET student_id=$1, updated_at=$2 WHERE id=$3`,
		strings.TrimSpace(studentID), time.Now().UTC(), userID)
	if err != nil && isUniqueViolation(err) {
		return ErrStudentIDTaken
	}
	return err
}

// RequestPasswordReset issues a one-hour single-use token and mails the
// reset link. Unknown emails and cooldown hits return nil to avoid account
// enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	email = normalizeEmail(email)

	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email=$1`, email).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	// at most one token per minute per user
	var last time.Time
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM password_reset_tokens WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`,
		userID).Scan(&last)
	if err == nil && time.Since(last) < time.Minute {
		return nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (user_id, token, expires_at, created_at) VALUES ($1,$2,$3,$4)`,
		userID, token, time.Now().UTC().Add(time.Hour), time.Now().UTC())
	if err != nil {
		return err
	}

	link := s.resetLinkBase + "?token=" + token
	if res := s.notifier.SendPasswordReset(ctx, email, link); res.Status == "error" {
		s.log.Error("reset email delivery failed", "recipient", email, "message", res.Message)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	var userID string
	var expiresAt time.Time
	var usedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at, used_at FROM password_reset_tokens WHERE token=$1`,
		token).Scan(&userID, &expiresAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBadResetToken
	}
	if err != nil {
		return err
	}
	if usedAt.Valid || time.Now().After(expiresAt) {
		return ErrBadResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash=$1, updated_at=$2 WHERE id=$3`,
		string(hash), time.Now().UTC(), userID); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at=$1 WHERE token=$2`,
		time.Now().UTC(), token)
	return err
}

func (s *Service) userByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var studentID sql.NullString
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, role, student_id, password_hash FROM users WHERE email=$1`, email,
	).Scan(&u.ID, &u.Email, &u.Role, &studentID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrUserNotFound
	}
	if err != nil {
		return User{}, "", err
	}
	u.StudentID = studentID.String
	return u, hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "23505") || // postgres unique_violation
		strings.Contains(msg, "unique constraint") // sqlite
}
