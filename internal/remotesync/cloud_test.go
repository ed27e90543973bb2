package remotesync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/mrlokans/deepr/internal/crypto"
	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/entities"
	"github.com/mrlokans/deepr/internal/storage"
	"github.com/mrlokans/deepr/internal/tokenstore"
)

// memoryStorage is an in-memory storage.Client that also checks the
// Authorization header the adapter attaches.
type memoryStorage struct {
	mu       sync.Mutex
	files    map[string]storage.FileInfo
	content  map[string][]byte
	creates  int
	http     *http.Client
	pingURL  string
	authSeen []string
}

func newMemoryStorage(pingURL string) *memoryStorage {
	return &memoryStorage{files: map[string]storage.FileInfo{}, content: map[string][]byte{}, pingURL: pingURL}
}

func (m *memoryStorage) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.pingURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (m *memoryStorage) List(ctx context.Context, name string) ([]storage.FileInfo, error) {
	if err := m.ping(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.FileInfo
	for _, f := range m.files {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryStorage) Download(_ context.Context, file storage.FileInfo) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(m.content[file.ID])), nil
}

func (m *memoryStorage) Create(_ context.Context, name string, content io.Reader) (*storage.FileInfo, error) {
	data, _ := io.ReadAll(content)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	info := storage.FileInfo{Name: name, ID: name, ModifiedAt: time.Now()}
	m.files[info.ID] = info
	m.content[info.ID] = data
	return &info, nil
}

func (m *memoryStorage) Update(_ context.Context, file storage.FileInfo, content io.Reader) (*storage.FileInfo, error) {
	data, _ := io.ReadAll(content)
	m.mu.Lock()
	defer m.mu.Unlock()
	file.ModifiedAt = time.Now()
	m.files[file.ID] = file
	m.content[file.ID] = data
	return &file, nil
}

func (m *memoryStorage) Delete(context.Context, storage.FileInfo) error { return nil }

type fixture struct {
	cloud   *Cloud
	tokens  *tokenstore.TokenStore
	storage *memoryStorage
	server  *httptest.Server
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}

	var auths []string
	var authMu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		assert.NotEmpty(t, r.Form.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"access-1","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`)
	})
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		authMu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		f.storage.authSeen = append([]string(nil), auths...)
		authMu.Unlock()
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	f.tokens, err = tokenstore.New(db.DB, tokenstore.Config{EncryptionKey: key})
	require.NoError(t, err)

	f.storage = newMemoryStorage(f.server.URL + "/ping")
	oauth := &oauth2.Config{
		ClientID:    "client-id",
		RedirectURL: "http://localhost/callback",
		Endpoint:    oauth2.Endpoint{AuthURL: f.server.URL + "/auth", TokenURL: f.server.URL + "/token"},
	}
	f.cloud = NewCloud(entities.OAuthProviderGoogleDrive, oauth, f.tokens, func(c *http.Client) storage.Client {
		f.storage.http = c
		return f.storage
	}, 5*time.Second, oauth2.AccessTypeOffline)
	return f
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	_, err := f.cloud.AuthURL("state-1")
	require.NoError(t, err)
	require.NoError(t, f.cloud.HandleAuthResult(context.Background(), "state-1", "the-code"))
}

func TestCloud_AuthURLUsesPKCE(t *testing.T) {
	f := setup(t)

	raw, err := f.cloud.AuthURL("state-xyz")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "offline", q.Get("access_type"))
}

func TestCloud_HandleAuthResult(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	assert.False(t, f.cloud.IsAuthenticated(ctx))
	assert.ErrorIs(t, f.cloud.HandleAuthResult(ctx, "never-issued", "the-code"), ErrUnknownState)

	f.signIn(t)
	assert.True(t, f.cloud.IsAuthenticated(ctx))

	token, err := f.tokens.LoadToken(entities.OAuthProviderGoogleDrive)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", token.RefreshToken)

	// A state can only be used once.
	assert.ErrorIs(t, f.cloud.HandleAuthResult(ctx, "state-1", "the-code"), ErrUnknownState)

	require.NoError(t, f.cloud.SignOut(ctx))
	assert.False(t, f.cloud.IsAuthenticated(ctx))
}

func TestCloud_AuthStateExpires(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.cloud.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		_, err := f.cloud.AuthURL(fmt.Sprintf("abandoned-%d", i))
		require.NoError(t, err)
	}
	_, err := f.cloud.AuthURL("late")
	require.NoError(t, err)

	now = now.Add(authStateTTL + time.Second)
	assert.ErrorIs(t, f.cloud.HandleAuthResult(ctx, "late", "the-code"), ErrUnknownState)

	// Starting a new sign-in drops the abandoned ones.
	_, err = f.cloud.AuthURL("fresh")
	require.NoError(t, err)
	f.cloud.mu.Lock()
	assert.Len(t, f.cloud.verifiers, 1)
	f.cloud.mu.Unlock()

	require.NoError(t, f.cloud.HandleAuthResult(ctx, "fresh", "the-code"))
	assert.True(t, f.cloud.IsAuthenticated(ctx))
}

func TestCloud_RequiresAuthentication(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cloud.UploadBackup(ctx, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, _, err = f.cloud.DownloadBackup(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCloud_UploadAndDownload(t *testing.T) {
	f := setup(t)
	f.signIn(t)
	ctx := context.Background()

	_, found, err := f.cloud.DownloadBackup(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	status, err := f.cloud.BackupStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.HasBackup)

	uploaded, err := f.cloud.UploadBackup(ctx, strings.NewReader("v1"))
	require.NoError(t, err)
	assert.True(t, uploaded)
	uploaded, err = f.cloud.UploadBackup(ctx, strings.NewReader("v2"))
	require.NoError(t, err)
	assert.True(t, uploaded)
	assert.Equal(t, 1, f.storage.creates, "second upload updates in place")

	body, found, err := f.cloud.DownloadBackup(ctx)
	require.NoError(t, err)
	require.True(t, found)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "v2", string(data))

	status, err = f.cloud.BackupStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.HasBackup)
	assert.NotNil(t, status.LastBackupAt)

	require.NotEmpty(t, f.storage.authSeen)
	assert.Equal(t, "Bearer access-1", f.storage.authSeen[0])
}

func TestCloud_Unavailable(t *testing.T) {
	f := setup(t)
	f.cloud.oauth.ClientID = ""
	ctx := context.Background()

	assert.False(t, f.cloud.IsAvailable())
	_, err := f.cloud.AuthURL("s")
	assert.ErrorIs(t, err, ErrUnavailable)

	uploaded, err := f.cloud.UploadBackup(ctx, strings.NewReader("x"))
	assert.NoError(t, err)
	assert.False(t, uploaded)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var a Adapter = Noop{}

	assert.False(t, a.IsAvailable())
	assert.False(t, a.IsAuthenticated(ctx))

	uploaded, err := a.UploadBackup(ctx, strings.NewReader("x"))
	assert.NoError(t, err)
	assert.False(t, uploaded)

	body, found, err := a.DownloadBackup(ctx)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, body)

	assert.ErrorIs(t, a.UploadFile(ctx, "x", strings.NewReader("")), ErrUnavailable)
}

func TestProviderConstructors(t *testing.T) {
	drive := NewGoogleDrive(Config{ClientID: "id"}, nil)
	assert.Equal(t, "gdrive", drive.Provider())
	assert.Equal(t, DefaultTimeout, drive.timeout)

	box := NewDropbox(Config{ClientID: "id", Timeout: time.Second}, nil)
	assert.Equal(t, "dropbox", box.Provider())
	raw, err := box.AuthURL("s")
	require.NoError(t, err)
	assert.Contains(t, raw, "token_access_type=offline")
}
