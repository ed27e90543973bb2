package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/database/settings"
	"github.com/mrlokans/deepr/internal/remotesync"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestSettings(db *database.Database) *settingsstore.SettingsStore {
	return settingsstore.New(settings.NewRepository(db.DB))
}

// stubRemote is an available provider that accepts one known code.
type stubRemote struct {
	remotesync.Noop
	available bool

	mu            sync.Mutex
	authenticated bool
	states        []string
}

func (s *stubRemote) Provider() string  { return "gdrive" }
func (s *stubRemote) IsAvailable() bool { return s.available }

func (s *stubRemote) IsAuthenticated(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *stubRemote) AuthURL(state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
	return "https://provider.test/auth?state=" + state, nil
}

func (s *stubRemote) HandleAuthResult(_ context.Context, _ string, code string) error {
	if code != "good-code" {
		return remotesync.ErrUnknownState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	return nil
}

func (s *stubRemote) SignOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	return nil
}

// recordingNotifier counts change notifications.
type recordingNotifier struct {
	mu      sync.Mutex
	changed int
	deleted int
}

func (n *recordingNotifier) LinksChanged() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed++
}

func (n *recordingNotifier) LinksDeleted() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted++
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.changed, n.deleted
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
