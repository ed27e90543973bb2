package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/deepr/internal/config"
	"github.com/mrlokans/deepr/internal/entrypoint"
)

var errStateMismatch = errors.New("the pasted redirect belongs to a different sign-in attempt")

// RemoteAuthCommand signs in to the remote sync provider without the HTTP server.
// The user opens the authorization URL and pastes back the code or the full
// redirect URL shown in the browser.
type RemoteAuthCommand struct {
	SignOut bool

	in io.Reader
}

func NewRemoteAuthCommand() *RemoteAuthCommand {
	return &RemoteAuthCommand{in: os.Stdin}
}

func (cmd *RemoteAuthCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("remote-auth", flag.ExitOnError)

	fs.BoolVar(&cmd.SignOut, "sign-out", false, "Delete the stored token instead of signing in")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s remote-auth [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sign in to the provider named by REMOTE_SYNC_PROVIDER (gdrive or dropbox).\n\n")
		fmt.Fprintf(os.Stderr, "Prerequisites:\n")
		fmt.Fprintf(os.Stderr, "  1. Set REMOTE_SYNC_CLIENT_ID and REMOTE_SYNC_CLIENT_SECRET\n")
		fmt.Fprintf(os.Stderr, "  2. Register REMOTE_SYNC_REDIRECT_URL with the provider\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *RemoteAuthCommand) Run() error {
	app, err := entrypoint.NewApp(config.NewConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	remote := app.Remote
	if !remote.IsAvailable() {
		return fmt.Errorf("remote sync is not configured: set REMOTE_SYNC_PROVIDER and REMOTE_SYNC_CLIENT_ID")
	}

	ctx := context.Background()
	provider := remote.Provider()

	if cmd.SignOut {
		err := remote.SignOut(ctx)
		app.Auditor.LogAuth(provider, "sign_out", err)
		if err != nil {
			return err
		}
		fmt.Printf("Signed out of %s\n", provider)
		return nil
	}

	state := uuid.NewString()
	authURL, err := remote.AuthURL(state)
	if err != nil {
		return fmt.Errorf("failed to build auth URL: %w", err)
	}

	fmt.Printf("Remote Sign-in (%s)\n", provider)
	fmt.Println("\n1. Open this URL in your browser:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println("\n2. Authorize the application")
	fmt.Println("3. Paste the authorization code, or the whole URL you were redirected to:")
	fmt.Println()
	fmt.Print("Code or URL: ")

	line, err := bufio.NewReader(cmd.in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	code, err := parseAuthInput(line, state)
	if err != nil {
		return err
	}

	err = remote.HandleAuthResult(ctx, state, code)
	app.Auditor.LogAuth(provider, "sign_in", err)
	if err != nil {
		return err
	}

	fmt.Printf("\nSigned in to %s. Backups can now be uploaded with '%s backup'.\n", provider, os.Args[0])
	return nil
}

// parseAuthInput accepts a bare code or a redirect URL carrying code and state.
func parseAuthInput(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("authorization code cannot be empty")
	}

	if !strings.Contains(input, "code=") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if s := q.Get("state"); s != "" && s != state {
		return "", errStateMismatch
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL carries no code")
	}
	return code, nil
}
