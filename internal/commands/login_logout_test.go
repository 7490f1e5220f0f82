package commands_test

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tarevity/internal/commands"
	"tarevity/internal/config"
	"tarevity/internal/exitcode"
)

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", filepath.Base(path), err)
	}
}

func TestLoginCommand_NoOAuthClient(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), Backend: config.BackendGoogle}

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LoginCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if outBuf.String() != "" {
		t.Errorf("expected no stdout, got %q", outBuf.String())
	}
	if !strings.Contains(errBuf.String(), "oauth_client.json not found in "+cfg.Dir) {
		t.Errorf("expected missing oauth_client.json message, got %q", errBuf.String())
	}
}

func TestLoginCommand_MongoBackend(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), Backend: config.BackendMongo}

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LoginCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if outBuf.String() != "login is only needed for the google backend\n" {
		t.Errorf("unexpected stdout %q", outBuf.String())
	}
}

// A token without a usable refresh token must not count as logged in.
func TestLoginCommand_UnusableToken(t *testing.T) {
	tokens := map[string]string{
		"corrupt":         `{"access_token":`,
		"no refresh":      `{"access_token":"test","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`,
		"expired, no ref": `{"access_token":"expired","token_type":"Bearer"}`,
	}

	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, config.OAuthClientFile), testOAuthClient)
			writeFile(t, filepath.Join(dir, config.TokenFile), token)
			cfg := &config.Config{Dir: dir, Backend: config.BackendGoogle}

			// Cancelled up front so the flow stops before waiting for a callback.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var outBuf, errBuf bytes.Buffer
			code := (&commands.LoginCmd{}).Run(ctx, cfg, nil, nil, &outBuf, &errBuf)

			if outBuf.String() == "already logged in\n" {
				t.Error("should not say 'already logged in'")
			}
			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
		})
	}
}

func TestLogoutCommand_OnlyRemovesToken(t *testing.T) {
	dir := t.TempDir()
	oauthPath := filepath.Join(dir, config.OAuthClientFile)
	tokenPath := filepath.Join(dir, config.TokenFile)
	writeFile(t, oauthPath, testOAuthClient)
	writeFile(t, tokenPath, `{"access_token":"test","refresh_token":"test"}`)

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LogoutCmd{}).Run(context.Background(), &config.Config{Dir: dir}, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
	if outBuf.String() != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", outBuf.String())
	}
	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("token.json should have been deleted")
	}
	if _, err := os.Stat(oauthPath); err != nil {
		t.Error("oauth_client.json should NOT have been deleted")
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	for _, quiet := range []bool{false, true} {
		var outBuf, errBuf bytes.Buffer
		cfg := &config.Config{Dir: t.TempDir(), Quiet: quiet}
		code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

		want := "not logged in\n"
		if quiet {
			want = ""
		}
		if code != exitcode.Success {
			t.Errorf("quiet=%v: expected exit code %d, got %d", quiet, exitcode.Success, code)
		}
		if errBuf.String() != "" {
			t.Errorf("quiet=%v: expected no stderr, got %q", quiet, errBuf.String())
		}
		if outBuf.String() != want {
			t.Errorf("quiet=%v: expected %q, got %q", quiet, want, outBuf.String())
		}
	}
}

func TestLogoutCommand_AllRemovesClient(t *testing.T) {
	dir := t.TempDir()
	oauthPath := filepath.Join(dir, config.OAuthClientFile)
	writeFile(t, oauthPath, testOAuthClient)

	cmd := &commands.LogoutCmd{}
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse([]string{"--all"}); err != nil {
		t.Fatal(err)
	}

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), &config.Config{Dir: dir}, nil, nil, &outBuf, &errBuf)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if outBuf.String() != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", outBuf.String())
	}
	if _, err := os.Stat(oauthPath); !os.IsNotExist(err) {
		t.Error("oauth_client.json should have been deleted")
	}
}
