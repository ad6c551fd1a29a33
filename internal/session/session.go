// Package session holds the single in-memory login context and gates
// every protected operation by role. Expiry is lazy: the timeout is
// checked on each read, so no background timer is needed.
package session

import (
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mercado-pos/domain"
)

// DefaultTimeout is the inactivity window after which a session dies.
const DefaultTimeout = 30 * time.Minute

// Guard authenticates operators and owns the current session.
type Guard struct {
	db      *sqlx.DB
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	current *domain.Session
	now     func() time.Time
}

// NewGuard constructs a Guard. A non-positive timeout falls back to
// DefaultTimeout.
func NewGuard(db *sqlx.DB, timeout time.Duration, log *zap.Logger) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{db: db, log: log, timeout: timeout, now: time.Now}
}

// Login authenticates username/password and replaces the current session.
// Not-found and wrong-password both yield the same generic error; inactive
// accounts get a distinct message.
func (g *Guard) Login(username, password string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.E(domain.KindValidation, "username is required")
	}
	if password == "" {
		return nil, domain.E(domain.KindValidation, "password is required")
	}
	if len(password) < 4 {
		return nil, domain.E(domain.KindValidation, "password is too short")
	}

	var user domain.User
	err := g.db.Get(&user, `
		SELECT id, username, password_hash, full_name, role, is_active
		FROM users
		WHERE username = ?
		LIMIT 1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindAuth, "invalid username or password")
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to process login", err)
	}

	if !user.IsActive {
		return nil, domain.E(domain.KindAuth, "account is inactive, contact an administrator")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.E(domain.KindAuth, "invalid username or password")
	}

	now := g.now()
	sess := &domain.Session{
		UserID:       user.ID,
		Username:     user.Username,
		FullName:     user.FullName,
		Role:         user.Role,
		LoginTime:    now,
		LastActivity: now,
	}

	g.mu.Lock()
	g.current = sess
	g.mu.Unlock()

	g.log.Info("login", zap.String("username", user.Username), zap.String("role", user.Role))
	snapshot := *sess
	return &snapshot, nil
}

// Logout destroys the current session.
func (g *Guard) Logout() {
	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()
}

// Current returns the live session, or nil if none exists or it has
// expired. Expiry destroys the session as a side effect of the read.
func (g *Guard) Current() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess := g.live()
	if sess == nil {
		return nil
	}
	snapshot := *sess
	return &snapshot
}

// IsLoggedIn reports whether a live, non-expired session exists.
func (g *Guard) IsLoggedIn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live() != nil
}

// UpdateActivity refreshes the inactivity clock. Called by the
// presentation layer on user interaction, throttled upstream.
func (g *Guard) UpdateActivity() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sess := g.live(); sess != nil {
		sess.LastActivity = g.now()
	}
}

// Authorize returns the live session if it belongs to userID, refreshing
// its activity. Used by the transport layer to bind a request credential
// to the in-memory session.
func (g *Guard) Authorize(userID int64) (*domain.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess := g.live()
	if sess == nil {
		return nil, domain.E(domain.KindAuth, "session expired, log in again")
	}
	if sess.UserID != userID {
		return nil, domain.E(domain.KindAuth, "session expired, log in again")
	}
	sess.LastActivity = g.now()
	snapshot := *sess
	return &snapshot, nil
}

// HasRole reports whether the live session holds one of roles.
func (g *Guard) HasRole(roles ...string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess := g.live()
	if sess == nil {
		return false
	}
	for _, role := range roles {
		if sess.Role == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the live session is an admin.
func (g *Guard) IsAdmin() bool {
	return g.HasRole(domain.RoleAdmin)
}

// IsManager reports whether the live session is a manager or admin.
func (g *Guard) IsManager() bool {
	return g.HasRole(domain.RoleAdmin, domain.RoleManager)
}

// live returns the current session after applying lazy expiry. Caller
// must hold the mutex.
func (g *Guard) live() *domain.Session {
	if g.current == nil {
		return nil
	}
	if g.now().Sub(g.current.LastActivity) > g.timeout {
		g.log.Info("session expired", zap.String("username", g.current.Username))
		g.current = nil
		return nil
	}
	return g.current
}
