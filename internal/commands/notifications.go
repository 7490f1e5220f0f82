package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/notify"
	"tarevity/internal/output"
	"tarevity/internal/service"
	"tarevity/internal/session"
)

func init() {
	Register(&NotificationsCmd{})
}

// NotificationsCmd lists or dismisses the user's notifications.
type NotificationsCmd struct {
	id     string
	todoID string
	all    bool
}

func (c *NotificationsCmd) Name() string      { return "notifications" }
func (c *NotificationsCmd) Aliases() []string { return []string{"notif"} }
func (c *NotificationsCmd) Synopsis() string  { return "List or dismiss notifications" }
func (c *NotificationsCmd) Usage() string {
	return "tarevity notifications [--dismiss <id> | --todo <task-id> | --all]"
}
func (c *NotificationsCmd) NeedsSession() bool { return true }

func (c *NotificationsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.id, "dismiss", "", "")
	fs.StringVar(&c.todoID, "todo", "", "")
	fs.BoolVar(&c.all, "all", false, "")
}

func (c *NotificationsCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if sess.Dismisser == nil {
		fmt.Fprintln(errOut, "error: notifications are not configured (set CASS_DB)")
		return exitcode.AuthError
	}
	if cfg.UserID == "" {
		fmt.Fprintln(errOut, "error: TAREVITY_USER_ID is required for notifications")
		return exitcode.AuthError
	}

	if c.id == "" && c.todoID == "" && !c.all {
		list, err := sess.Notifications.List(ctx, cfg.UserID)
		if err != nil {
			return fail(errOut, err, "Error fetching notifications")
		}
		for _, n := range list {
			output.FormatNotification(out, n)
		}
		if len(list) == 0 && !cfg.Quiet {
			fmt.Fprintln(out, "no notifications")
		}
		return exitcode.Success
	}

	res, err := sess.Dismisser.Dismiss(ctx, cfg.UserID, notify.Request{ID: c.id, TodoID: c.todoID, All: c.all})
	if err != nil {
		msg := "Unknown error deleting notifications"
		var e *service.Error
		if errors.As(err, &e) && e.Message != "" {
			msg = e.Message
		}
		fmt.Fprintf(errOut, "error: %s\n", msg)
		return exitcode.FromError(err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "%s (%d)\n", res.Message, res.Count)
	}
	return exitcode.Success
}
