package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/httpapi"
	"tarevity/internal/session"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the notification HTTP API until ctx is cancelled.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string       { return "serve" }
func (c *ServeCmd) Aliases() []string  { return nil }
func (c *ServeCmd) Synopsis() string   { return "Serve the notification API" }
func (c *ServeCmd) Usage() string      { return "tarevity serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsSession() bool { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if sess.Dismisser == nil {
		fmt.Fprintln(errOut, "error: notifications are not configured (set CASS_DB)")
		return exitcode.AuthError
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(errOut, "error: JWT_SECRET is required to serve")
		return exitcode.AuthError
	}

	addr := c.addr
	if addr == "" {
		addr = ":" + cfg.ServerPort
	}
	auth := httpapi.JWTAuthenticator{Secret: []byte(cfg.JWTSecret)}
	handler := httpapi.NewRouter(sess.Dismisser, auth, sess.Log)

	if !cfg.Quiet {
		fmt.Fprintf(out, "listening on %s\n", addr)
	}
	if err := httpapi.Serve(ctx, addr, handler, sess.Log); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
