package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

const (
	sessionKeyOAuthState    = "oauth_state"
	sessionKeyOAuthProvider = "oauth_provider"
	sessionKeyOAuthStarted  = "oauth_started_at"

	// DefaultOAuthStateTTL bounds how long a sign-in may take.
	DefaultOAuthStateTTL = 15 * time.Minute
)

func init() {
	gob.Register(time.Time{})
}

type SessionConfig struct {
	Lifetime      time.Duration
	SecureCookies bool
	StateTTL      time.Duration
}

// SessionManager wraps scs.SessionManager with the sign-in state helpers.
type SessionManager struct {
	*scs.SessionManager
	stateTTL time.Duration
	now      func() time.Time
}

// NewSessionManager stores sessions in the given SQLite database.
func NewSessionManager(sqlDB *sql.DB, cfg SessionConfig) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.Lifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = time.Hour
	}

	sm.Cookie.Name = "deepr_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// The provider callback is a cross-site top-level redirect; Strict would drop the cookie.
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = DefaultOAuthStateTTL
	}

	return &SessionManager{SessionManager: sm, stateTTL: ttl, now: time.Now}, nil
}

// BeginOAuth generates a fresh state value for provider and remembers it in
// the session. A previous pending sign-in is replaced.
func (sm *SessionManager) BeginOAuth(ctx context.Context, provider string) (string, error) {
	if err := sm.RenewToken(ctx); err != nil {
		return "", err
	}

	state := uuid.NewString()
	sm.Put(ctx, sessionKeyOAuthState, state)
	sm.Put(ctx, sessionKeyOAuthProvider, provider)
	sm.Put(ctx, sessionKeyOAuthStarted, sm.now())
	return state, nil
}

// ConsumeOAuth reports whether state matches the pending sign-in for
// provider. The pending state is cleared either way, so a value is only
// accepted once.
func (sm *SessionManager) ConsumeOAuth(ctx context.Context, provider, state string) bool {
	expected := sm.PopString(ctx, sessionKeyOAuthState)
	pendingProvider := sm.PopString(ctx, sessionKeyOAuthProvider)
	started := sm.PopTime(ctx, sessionKeyOAuthStarted)

	if expected == "" || state == "" || pendingProvider != provider {
		return false
	}
	if started.IsZero() || sm.now().Sub(started) > sm.stateTTL {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(state)) == 1
}

// PendingOAuth returns the provider of an unfinished sign-in, if any.
func (sm *SessionManager) PendingOAuth(ctx context.Context) string {
	return sm.GetString(ctx, sessionKeyOAuthProvider)
}
