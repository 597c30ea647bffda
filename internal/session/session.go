// Package session tracks signed-in users. A Session is created on sign-in,
// passed explicitly to whatever needs the current user, and discarded on
// sign-out.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// LoginMethod is how a user signed in.
type LoginMethod string

const (
	MethodAnonymous LoginMethod = "anonymous"
	MethodEmail     LoginMethod = "email"
	MethodGoogle    LoginMethod = "google"
)

// Session is one signed-in user.
type Session struct {
	Token     uuid.UUID
	UserID    string
	Method    LoginMethod
	Email     string
	StartedAt time.Time
}

// Credentials identify the user signing in. Subject is the identity
// provider's stable user id for google sign-ins.
type Credentials struct {
	Method  LoginMethod
	Email   string
	Subject string
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	validate *validator.Validate
	now      func() time.Time
}

// NewManager creates an empty session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		validate: validator.New(),
		now:      time.Now,
	}
}

// Start signs a user in and returns the new session.
func (m *Manager) Start(creds Credentials) (*Session, error) {
	userID, err := m.userID(creds)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Token:     uuid.New(),
		UserID:    userID,
		Method:    creds.Method,
		Email:     strings.ToLower(strings.TrimSpace(creds.Email)),
		StartedAt: m.now(),
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	log.Info().
		Str("user_id", s.UserID).
		Str("method", string(s.Method)).
		Msg("Session started")
	return s, nil
}

// End signs the session out. It returns the ended session, or nil if the
// token was unknown.
func (m *Manager) End(token uuid.UUID) *Session {
	m.mu.Lock()
	s, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	log.Info().Str("user_id", s.UserID).Msg("Session ended")
	return s
}

// Lookup returns the live session for token.
func (m *Manager) Lookup(token uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) userID(creds Credentials) (string, error) {
	switch creds.Method {
	case MethodAnonymous:
		return "anon-" + uuid.New().String(), nil
	case MethodEmail:
		email := strings.ToLower(strings.TrimSpace(creds.Email))
		if err := m.validate.Var(email, "required,email"); err != nil {
			return "", models.NewValidationError("email", "must be a valid email address", creds.Email)
		}
		return "email-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(), nil
	case MethodGoogle:
		if strings.TrimSpace(creds.Subject) == "" {
			return "", models.NewValidationError("subject", "is required for google sign-in", creds.Subject)
		}
		return fmt.Sprintf("google-%s", creds.Subject), nil
	default:
		return "", models.NewValidationError("method", "must be one of anonymous, email, google", creds.Method)
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
