package commands

import (
	"context"
	"flag"
	"io"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/output"
	"tarevity/internal/session"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd prints every field of one task.
type ShowCmd struct{}

func (c *ShowCmd) Name() string       { return "show" }
func (c *ShowCmd) Aliases() []string  { return nil }
func (c *ShowCmd) Synopsis() string   { return "Show task details" }
func (c *ShowCmd) Usage() string      { return "tarevity show <ref>" }
func (c *ShowCmd) NeedsSession() bool { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	task, found, err := ResolveTask(ctx, sess, ref)
	if err != nil {
		if _, oor := err.(errOutOfRange); oor {
			return usageError(errOut, "%v", err)
		}
		return fail(errOut, err, "Error fetching tasks")
	}
	if !found {
		return usageError(errOut, "task not found: %s", ref.ID)
	}
	output.FormatTaskDetail(out, task)
	return exitcode.Success
}
