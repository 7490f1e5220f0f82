package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/session"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd prints the version. -v adds the Go runtime and the configured
// backend.
type VersionCmd struct {
	verbose bool
}

func (c *VersionCmd) Name() string       { return "version" }
func (c *VersionCmd) Aliases() []string  { return nil }
func (c *VersionCmd) Synopsis() string   { return "Print version" }
func (c *VersionCmd) Usage() string      { return "tarevity version [-v]" }
func (c *VersionCmd) NeedsSession() bool { return false }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	c.verbose = false
	fs.BoolVar(&c.verbose, "v", false, "include runtime and backend")
}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "%s %s\n", config.AppName, Version)
	if c.verbose {
		fmt.Fprintf(out, "%s %s/%s backend=%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH, cfg.Backend)
	}
	return exitcode.Success
}
