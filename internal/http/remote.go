package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/remotesync"
)

// OAuthSessions binds the authorization state to the browser session.
type OAuthSessions interface {
	BeginOAuth(ctx context.Context, provider string) (string, error)
	ConsumeOAuth(ctx context.Context, provider, state string) bool
}

// AuthRecorder records sign-in and sign-out outcomes.
type AuthRecorder interface {
	LogAuth(provider, action string, err error)
}

type RemoteController struct {
	adapter  remotesync.Adapter
	sessions OAuthSessions
	recorder AuthRecorder
}

// NewRemoteController creates the remote sync controller; recorder may be nil.
func NewRemoteController(adapter remotesync.Adapter, sessions OAuthSessions, recorder AuthRecorder) *RemoteController {
	return &RemoteController{adapter: adapter, sessions: sessions, recorder: recorder}
}

type RemoteStatus struct {
	Provider      string `json:"provider"`
	Available     bool   `json:"available"`
	Authenticated bool   `json:"authenticated"`
}

// Status reports the configured provider and sign-in state
// GET /api/remote
func (rc *RemoteController) Status(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, RemoteStatus{
		Provider:      rc.adapter.Provider(),
		Available:     rc.adapter.IsAvailable(),
		Authenticated: rc.adapter.IsAuthenticated(ctx),
	})
}

// BeginAuth returns the provider page the user visits to grant access
// POST /api/remote/auth
func (rc *RemoteController) BeginAuth(c *gin.Context) {
	if !rc.adapter.IsAvailable() {
		respondPipelineError(c, remotesync.ErrUnavailable, "remote auth")
		return
	}
	state, err := rc.sessions.BeginOAuth(c.Request.Context(), rc.adapter.Provider())
	if err != nil {
		respondInternalError(c, err, "begin remote auth")
		return
	}
	authURL, err := rc.adapter.AuthURL(state)
	if err != nil {
		respondInternalError(c, err, "build auth url")
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// Callback completes the authorization the provider redirected back from
// GET /api/remote/callback?state=&code=
func (rc *RemoteController) Callback(c *gin.Context) {
	provider := rc.adapter.Provider()
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "authorization denied: " + errParam, Code: "auth_denied"})
		return
	}

	ctx := c.Request.Context()
	state, code := c.Query("state"), c.Query("code")
	if code == "" || !rc.sessions.ConsumeOAuth(ctx, provider, state) {
		respondPipelineError(c, remotesync.ErrUnknownState, "remote callback")
		return
	}

	err := rc.adapter.HandleAuthResult(ctx, state, code)
	if rc.recorder != nil {
		rc.recorder.LogAuth(provider, "sign_in", err)
	}
	if err != nil {
		respondPipelineError(c, err, "remote callback")
		return
	}
	respondSuccess(c, "signed in to "+provider)
}

// SignOut forgets the stored provider credentials
// POST /api/remote/sign-out
func (rc *RemoteController) SignOut(c *gin.Context) {
	provider := rc.adapter.Provider()
	err := rc.adapter.SignOut(c.Request.Context())
	if rc.recorder != nil {
		rc.recorder.LogAuth(provider, "sign_out", err)
	}
	if err != nil {
		respondInternalError(c, err, "remote sign out")
		return
	}
	respondSuccess(c, "signed out")
}
