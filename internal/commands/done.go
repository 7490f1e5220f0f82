package commands

import (
	"context"
	"flag"
	"io"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/service"
	"tarevity/internal/session"
)

func init() {
	Register(&DoneCmd{completed: true})
	Register(&DoneCmd{completed: false})
	Register(&StatusCmd{})
}

// DoneCmd implements done and undone: it toggles the completion flag.
type DoneCmd struct {
	completed bool
}

func (c *DoneCmd) Name() string {
	if c.completed {
		return "done"
	}
	return "undone"
}

func (c *DoneCmd) Aliases() []string {
	if c.completed {
		return []string{"complete"}
	}
	return []string{"reopen"}
}

func (c *DoneCmd) Synopsis() string {
	if c.completed {
		return "Mark a task completed"
	}
	return "Mark a completed task active again"
}

func (c *DoneCmd) Usage() string      { return "tarevity " + c.Name() + " <ref>" }
func (c *DoneCmd) NeedsSession() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	task, ok, code := resolveArg(ctx, sess, args, errOut)
	if !ok {
		return code
	}
	patch := service.TaskPatch{IsCompleted: service.BoolPtr(c.completed)}
	if _, err := sess.Mutations.Update(ctx, task.ID, patch); err != nil {
		return exitcode.FromError(err)
	}
	return exitcode.Success
}

// StatusCmd moves a task through the workflow.
type StatusCmd struct{}

func (c *StatusCmd) Name() string       { return "status" }
func (c *StatusCmd) Aliases() []string  { return nil }
func (c *StatusCmd) Synopsis() string   { return "Set a task's workflow status" }
func (c *StatusCmd) Usage() string      { return "tarevity status <ref> <active|review|completed>" }
func (c *StatusCmd) NeedsSession() bool { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		return usageError(errOut, "usage: %s", c.Usage())
	}
	st, ok := service.ParseStatus(args[1])
	if !ok {
		return usageError(errOut, "invalid status: %s", args[1])
	}

	task, ok, code := resolveArg(ctx, sess, args, errOut)
	if !ok {
		return code
	}

	// "completed" goes through the completion flag so both stay in step;
	// the other statuses are status-only changes.
	var patch service.TaskPatch
	if st == service.StatusCompleted {
		patch.IsCompleted = service.BoolPtr(true)
	} else {
		patch.Status = service.StatusPtr(st)
	}
	if _, err := sess.Mutations.Update(ctx, task.ID, patch); err != nil {
		return exitcode.FromError(err)
	}
	return exitcode.Success
}
