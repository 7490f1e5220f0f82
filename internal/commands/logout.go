package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/session"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd removes token.json. With --all the OAuth client file goes too.
type LogoutCmd struct {
	all bool
}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string      { return "tarevity logout [--all] [common flags]" }
func (c *LogoutCmd) NeedsSession() bool { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {
	c.all = false
	fs.BoolVar(&c.all, "all", false, "also remove oauth_client.json")
}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	paths := []string{cfg.TokenPath()}
	if c.all {
		paths = append(paths, cfg.OAuthClientPath())
	}

	removed := 0
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
		default:
			fmt.Fprintf(errOut, "error: failed to remove %s: %v\n", p, err)
			return exitcode.AuthError
		}
	}

	if cfg.Quiet {
		return exitcode.Success
	}
	if removed == 0 {
		fmt.Fprintln(out, "not logged in")
	} else {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
