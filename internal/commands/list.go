package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/output"
	"tarevity/internal/service"
	"tarevity/internal/session"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command. It also runs for `tarevity` with
// no args.
type ListCmd struct {
	open   bool
	status string
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "tarevity list [--open] [--status <status>]" }
func (c *ListCmd) NeedsSession() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.open, "open", false, "")
	fs.StringVar(&c.status, "status", "", "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}

	var want service.Status
	if c.status != "" {
		st, ok := service.ParseStatus(c.status)
		if !ok {
			return usageError(errOut, "invalid status: %s", c.status)
		}
		want = st
	}

	tasks, err := sess.Cache.Fetch(ctx)
	if err != nil {
		return fail(errOut, err, "Error fetching tasks")
	}

	// Numbers are positions in the whole collection so filtered output
	// still resolves.
	printed := 0
	for i, task := range tasks {
		if c.open && task.IsCompleted {
			continue
		}
		if want != "" && task.Status != want {
			continue
		}
		output.FormatTask(out, i+1, task)
		printed++
	}

	if printed == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}
