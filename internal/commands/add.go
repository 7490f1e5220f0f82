package commands

import (
	"context"
	"flag"
	"io"
	"strings"
	"time"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/output"
	"tarevity/internal/service"
	"tarevity/internal/session"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	priority string
	due      string
	notes    string
	status   string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tarevity add [--priority <p>] [--due <date>] [--notes <text>] [--status <s>] <title...>"
}
func (c *AddCmd) NeedsSession() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.priority, "priority", "medium", "")
	fs.StringVar(&c.priority, "p", "medium", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.notes, "notes", "", "")
	fs.StringVar(&c.status, "status", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return usageError(errOut, "title required")
	}

	in := service.NewTask{Title: title}

	p, ok := service.ParsePriority(c.priority)
	if !ok {
		return usageError(errOut, "invalid priority: %s", c.priority)
	}
	in.Priority = p

	if c.status != "" {
		st, ok := service.ParseStatus(c.status)
		if !ok {
			return usageError(errOut, "invalid status: %s", c.status)
		}
		in.Status = st
		in.IsCompleted = st == service.StatusCompleted
	}

	if c.due != "" {
		d, err := parseDue(c.due)
		if err != nil {
			return usageError(errOut, "invalid due date: %s", c.due)
		}
		in.DueDate = &d
	}

	if c.notes != "" {
		in.Description = service.StringPtr(c.notes)
	}

	// The coordinator reports the outcome.
	if _, err := sess.Mutations.Create(ctx, in); err != nil {
		return exitcode.FromError(err)
	}
	return exitcode.Success
}

// parseDue accepts YYYY-MM-DD and stores the date at UTC midnight.
func parseDue(s string) (time.Time, error) {
	return time.ParseInLocation(output.DateFormat, s, time.UTC)
}
