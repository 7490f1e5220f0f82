package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/service"
	"tarevity/internal/session"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd changes task fields. Only the flags given are sent.
type EditCmd struct {
	title      optString
	notes      optString
	priority   optString
	due        optString
	clearNotes bool
	clearDue   bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit a task" }
func (c *EditCmd) Usage() string {
	return "tarevity edit [--title <t>] [--notes <text>|--clear-notes] [--priority <p>] [--due <date>|--clear-due] <ref>"
}
func (c *EditCmd) NeedsSession() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	*c = EditCmd{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.notes, "notes", "")
	fs.Var(&c.priority, "priority", "")
	fs.Var(&c.due, "due", "")
	fs.BoolVar(&c.clearNotes, "clear-notes", false, "")
	fs.BoolVar(&c.clearDue, "clear-due", false, "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	var patch service.TaskPatch

	if c.title.set {
		title := strings.TrimSpace(c.title.value)
		if title == "" {
			return usageError(errOut, "title required")
		}
		patch.Title = &title
	}

	switch {
	case c.notes.set && c.clearNotes:
		return usageError(errOut, "cannot use both --notes and --clear-notes")
	case c.notes.set:
		patch.Description = service.StringPtr(c.notes.value)
	case c.clearNotes:
		patch.ClearDescription = true
	}

	if c.priority.set {
		p, ok := service.ParsePriority(c.priority.value)
		if !ok {
			return usageError(errOut, "invalid priority: %s", c.priority.value)
		}
		patch.Priority = &p
	}

	switch {
	case c.due.set && c.clearDue:
		return usageError(errOut, "cannot use both --due and --clear-due")
	case c.due.set:
		d, err := parseDue(c.due.value)
		if err != nil {
			return usageError(errOut, "invalid due date: %s", c.due.value)
		}
		patch.DueDate = &d
	case c.clearDue:
		patch.ClearDueDate = true
	}

	if patch.Empty() {
		return usageError(errOut, "nothing to change")
	}

	task, ok, code := resolveArg(ctx, sess, args, errOut)
	if !ok {
		return code
	}
	if _, err := sess.Mutations.Update(ctx, task.ID, patch); err != nil {
		return exitcode.FromError(err)
	}
	return exitcode.Success
}
