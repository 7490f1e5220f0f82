// Package commands implements the tarevity CLI verbs on top of a session.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/service"
	"tarevity/internal/session"
)

// Command is one CLI verb. The dispatcher parses the common flags plus
// whatever RegisterFlags adds, then calls Run with the positional args.
type Command interface {
	Name() string
	Aliases() []string
	Synopsis() string
	Usage() string

	// NeedsSession reports whether Run gets a session. When false the
	// dispatcher passes nil and no backend is contacted.
	NeedsSession() bool

	RegisterFlags(fs *flag.FlagSet)

	// Run returns the process exit code.
	Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int
}

// fail prints err the way the mutation reporter does and maps it to an
// exit code.
func fail(errOut io.Writer, err error, fallback string) int {
	fmt.Fprintf(errOut, "error: %s\n", service.UserMessage(err, fallback))
	return exitcode.FromError(err)
}

// usageError prints msg and returns exitcode.UserError.
func usageError(errOut io.Writer, format string, args ...interface{}) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}
