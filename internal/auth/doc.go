// Package auth guards the HTTP API and carries remote sign-in state.
//
// There are no user accounts. When API_TOKEN is set every /api request must
// present it as a Bearer token; health, metrics and the provider callback
// stay public.
//
// Remote sign-in stores the OAuth state value in a server-side session
// (scs backed by SQLite) so the callback can be matched to the request that
// started it:
//
//	state, _ := sessions.BeginOAuth(c.Request.Context(), "gdrive")
//	c.Redirect(http.StatusFound, adapter.AuthURL(state))
//
//	// later, on the callback
//	if !sessions.ConsumeOAuth(c.Request.Context(), "gdrive", c.Query("state")) { ... }
package auth
