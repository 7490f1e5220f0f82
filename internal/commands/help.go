package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/session"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "tarevity help" }
func (c *HelpCmd) NeedsSession() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tarevity                                       List all tasks
  tarevity list [common flags] [--open] [--status <s>]
  tarevity add [common flags] [--priority <p>] [--due <YYYY-MM-DD>] [--notes <text>] [--status <s>] <title...>
  tarevity create ...                            Same as add
  tarevity done [common flags] <ref>
  tarevity undone [common flags] <ref>
  tarevity status [common flags] <ref> <active|review|completed>
  tarevity edit [common flags] [--title <t>] [--notes <text>|--clear-notes]
                [--priority <p>] [--due <YYYY-MM-DD>|--clear-due] <ref>
  tarevity show [common flags] <ref>
  tarevity rm [common flags] <ref>
  tarevity notifications [common flags] [--dismiss <id> | --todo <task-id> | --all]
  tarevity shell [common flags]
  tarevity serve [common flags] [--addr <host:port>]
  tarevity login [common flags]
  tarevity logout [--all] [common flags]
  tarevity help
  tarevity version [-v]

A <ref> is the number printed by list, or a task ID. Flags go before it.
Priorities: low, medium, high (or 1-3).

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
