package remotesync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mrlokans/deepr/internal/entities"
	"github.com/mrlokans/deepr/internal/metrics"
	"github.com/mrlokans/deepr/internal/storage"
	"github.com/mrlokans/deepr/internal/storage/providers/dropbox"
	"github.com/mrlokans/deepr/internal/storage/providers/gdrive"
	"github.com/mrlokans/deepr/internal/tokenstore"
)

// DefaultTimeout bounds every remote HTTP exchange.
const DefaultTimeout = 30 * time.Second

// authStateTTL is how long a started sign-in waits for its callback.
const authStateTTL = 10 * time.Minute

var dropboxEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.dropbox.com/oauth2/authorize",
	TokenURL: "https://api.dropboxapi.com/oauth2/token",
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
}

// ClientFactory builds a storage client on top of an authorized HTTP client.
type ClientFactory func(*http.Client) storage.Client

// Cloud adapts an OAuth-protected storage provider.
type Cloud struct {
	provider  entities.OAuthProvider
	oauth     *oauth2.Config
	authOpts  []oauth2.AuthCodeOption
	tokens    *tokenstore.TokenStore
	newClient ClientFactory
	timeout   time.Duration

	mu        sync.Mutex
	verifiers map[string]pendingAuth
	now       func() time.Time
}

type pendingAuth struct {
	verifier string
	started  time.Time
}

func NewCloud(provider entities.OAuthProvider, oauth *oauth2.Config, tokens *tokenstore.TokenStore, newClient ClientFactory, timeout time.Duration, authOpts ...oauth2.AuthCodeOption) *Cloud {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cloud{
		provider:  provider,
		oauth:     oauth,
		authOpts:  authOpts,
		tokens:    tokens,
		newClient: newClient,
		timeout:   timeout,
		verifiers: make(map[string]pendingAuth),
		now:       time.Now,
	}
}

// NewGoogleDrive stores backups in the Drive appDataFolder.
func NewGoogleDrive(cfg Config, tokens *tokenstore.TokenStore) *Cloud {
	oauth := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{gdrive.Scope},
		Endpoint:     google.Endpoint,
	}
	newClient := func(c *http.Client) storage.Client { return gdrive.NewClient(c) }
	return NewCloud(entities.OAuthProviderGoogleDrive, oauth, tokens, newClient, cfg.Timeout,
		oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// NewDropbox stores backups in the Dropbox app folder.
func NewDropbox(cfg Config, tokens *tokenstore.TokenStore) *Cloud {
	oauth := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     dropboxEndpoint,
	}
	newClient := func(c *http.Client) storage.Client { return dropbox.NewClient(c) }
	return NewCloud(entities.OAuthProviderDropbox, oauth, tokens, newClient, cfg.Timeout,
		oauth2.SetAuthURLParam("token_access_type", "offline"))
}

func (c *Cloud) Provider() string {
	return string(c.provider)
}

func (c *Cloud) IsAvailable() bool {
	return c.oauth.ClientID != ""
}

func (c *Cloud) IsAuthenticated(_ context.Context) bool {
	if !c.IsAvailable() {
		return false
	}
	token, err := c.tokens.LoadToken(c.provider)
	if err != nil {
		log.Printf("Remote sync: failed to load %s token: %v", c.provider, err)
		return false
	}
	return token != nil && (token.RefreshToken != "" || token.Valid())
}

// AuthURL starts a PKCE authorization for state.
func (c *Cloud) AuthURL(state string) (string, error) {
	if !c.IsAvailable() {
		return "", ErrUnavailable
	}
	verifier := oauth2.GenerateVerifier()

	c.mu.Lock()
	now := c.now()
	for s, p := range c.verifiers {
		if now.Sub(p.started) > authStateTTL {
			delete(c.verifiers, s)
		}
	}
	c.verifiers[state] = pendingAuth{verifier: verifier, started: now}
	c.mu.Unlock()

	opts := append([]oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}, c.authOpts...)
	return c.oauth.AuthCodeURL(state, opts...), nil
}

// HandleAuthResult exchanges the authorization code and stores the token.
func (c *Cloud) HandleAuthResult(ctx context.Context, state, code string) error {
	c.mu.Lock()
	pending, ok := c.verifiers[state]
	delete(c.verifiers, state)
	expired := ok && c.now().Sub(pending.started) > authStateTTL
	c.mu.Unlock()
	if !ok || expired {
		return ErrUnknownState
	}

	token, err := c.oauth.Exchange(c.httpContext(ctx), code, oauth2.VerifierOption(pending.verifier))
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := c.tokens.SaveToken(c.provider, token); err != nil {
		return err
	}
	log.Printf("Remote sync: signed in to %s", c.provider)
	return nil
}

func (c *Cloud) SignOut(_ context.Context) error {
	if err := c.tokens.DeleteToken(c.provider); err != nil {
		return err
	}
	log.Printf("Remote sync: signed out of %s", c.provider)
	return nil
}

func (c *Cloud) UploadBackup(ctx context.Context, content io.Reader) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}
	if err := c.UploadFile(ctx, BackupFileName, content); err != nil {
		return false, err
	}
	return true, nil
}

// UploadFile updates the newest remote file called name in place, or creates it.
func (c *Cloud) UploadFile(ctx context.Context, name string, content io.Reader) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	defer metrics.ObserveRemote(time.Now())

	if _, err := storage.Upsert(ctx, client, name, content); err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", name, c.provider, err)
	}
	return nil
}

func (c *Cloud) DownloadBackup(ctx context.Context) (io.ReadCloser, bool, error) {
	client, err := c.client()
	if err != nil {
		return nil, false, err
	}
	defer metrics.ObserveRemote(time.Now())

	body, _, err := storage.OpenLatest(ctx, client, BackupFileName)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to download backup from %s: %w", c.provider, err)
	}
	return body, true, nil
}

func (c *Cloud) BackupStatus(ctx context.Context) (BackupStatus, error) {
	client, err := c.client()
	if err != nil {
		return BackupStatus{}, err
	}
	files, err := client.List(ctx, BackupFileName)
	if err != nil {
		return BackupStatus{}, fmt.Errorf("failed to list backups on %s: %w", c.provider, err)
	}
	latest := storage.FindLatest(files)
	if latest == nil {
		return BackupStatus{}, nil
	}
	modified := latest.ModifiedAt
	return BackupStatus{HasBackup: true, LastBackupAt: &modified}, nil
}

// client returns a storage client whose requests carry a fresh token.
// Refreshed tokens are written back to the token store.
func (c *Cloud) client() (storage.Client, error) {
	if !c.IsAvailable() {
		return nil, ErrUnavailable
	}
	stored, err := c.tokens.LoadToken(c.provider)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotAuthenticated
	}

	src := c.oauth.TokenSource(c.httpContext(context.Background()), stored)
	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: c.tokens.TokenSource(c.provider, stored, src),
			Base:   http.DefaultTransport,
		},
	}
	return c.newClient(httpClient), nil
}

// httpContext makes token exchanges and refreshes use the bounded client.
func (c *Cloud) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.timeout})
}

var _ Adapter = (*Cloud)(nil)
