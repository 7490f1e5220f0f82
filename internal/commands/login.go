package commands

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"tarevity/internal/backend/googletasks"
	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/session"
)

const (
	oauthCallbackTimeout = 5 * time.Minute
	tokenExchangeTimeout = 30 * time.Second

	// Callback ports tried in order.
	oauthStartPort       = 8085
	oauthMaxPortAttempts = 5
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd runs the OAuth flow for the google backend and stores token.json.
type LoginCmd struct{}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Authenticate with Google" }
func (c *LoginCmd) Usage() string      { return "tarevity login [common flags]" }
func (c *LoginCmd) NeedsSession() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if cfg.Backend == config.BackendMongo {
		if !cfg.Quiet {
			fmt.Fprintln(out, "login is only needed for the google backend")
		}
		return exitcode.Success
	}

	if !cfg.HasOAuthClient() {
		printOAuthSetup(errOut, cfg.Dir)
		return exitcode.AuthError
	}

	oc, err := loadOAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if cfg.HasToken() && tokenUsable(cfg, oc) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	listener, port, err := listenCallback()
	if err != nil {
		fmt.Fprintln(errOut, "error: could not bind to local port for OAuth callback")
		return exitcode.AuthError
	}
	defer listener.Close()
	oc.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)))

	code, err := awaitCode(ctx, listener, state)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()
	token, err := oc.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to exchange code for token: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := saveToken(cfg.TokenPath(), token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

func printOAuthSetup(w io.Writer, dir string) {
	fmt.Fprintf(w, "error: oauth_client.json not found in %s\n\n", dir)
	fmt.Fprintln(w, "The google backend needs OAuth desktop-app credentials:")
	fmt.Fprintln(w, "  1. Enable the Google Tasks API at https://console.cloud.google.com/apis/library/tasks.googleapis.com")
	fmt.Fprintln(w, "  2. Create an OAuth client ID of type 'Desktop app' and download the JSON")
	fmt.Fprintf(w, "  3. Save it as %s/oauth_client.json\n", dir)
	fmt.Fprintln(w, "Then run 'tarevity login' again, or set TAREVITY_BACKEND=mongo.")
}

func loadOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oc, err := google.ConfigFromJSON(clientJSON, googletasks.OAuthScope())
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oc, nil
}

// listenCallback binds the first free callback port.
func listenCallback() (net.Listener, int, error) {
	for port := oauthStartPort; port < oauthStartPort+oauthMaxPortAttempts; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return l, port, nil
		}
	}
	return nil, 0, errors.New("no available port found")
}

// awaitCode serves /callback on l until the authorization code for state
// arrives.
func awaitCode(ctx context.Context, l net.Listener, state string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	reject := func(w http.ResponseWriter, err error) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		select {
		case errCh <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			reject(w, errors.New("oauth state mismatch"))
			return
		}
		code := q.Get("code")
		if code == "" {
			reject(w, errors.New("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>tarevity is authorized</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(l); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(oauthCallbackTimeout):
		return "", errors.New("oauth callback timed out")
	case <-ctx.Done():
		return "", errors.New("cancelled")
	}
}

// tokenUsable reports whether token.json holds a refresh token that still
// yields an access token.
func tokenUsable(cfg *config.Config, oc *oauth2.Config) bool {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return false
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil || token.RefreshToken == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = oc.TokenSource(ctx, &token).Token()
	return err == nil
}

// saveToken writes the token with mode 0600.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
