package commands

import (
	"context"
	"flag"
	"io"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/session"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "tarevity rm <ref>" }
func (c *RmCmd) NeedsSession() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	task, ok, code := resolveArg(ctx, sess, args, errOut)
	if !ok {
		return code
	}
	if err := sess.Mutations.Delete(ctx, task.ID); err != nil {
		return exitcode.FromError(err)
	}
	return exitcode.Success
}
