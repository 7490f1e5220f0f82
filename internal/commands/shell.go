package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/output"
	"tarevity/internal/session"
)

func init() {
	Register(&ShellCmd{})
}

// ShellCmd reads commands line by line and runs them over one session, so
// the cache and pending settles carry across commands.
type ShellCmd struct {
	// In defaults to os.Stdin.
	In io.Reader

	// Registry defaults to DefaultRegistry.
	Registry *Registry
}

func (c *ShellCmd) Name() string       { return "shell" }
func (c *ShellCmd) Aliases() []string  { return []string{"sh"} }
func (c *ShellCmd) Synopsis() string   { return "Run commands interactively" }
func (c *ShellCmd) Usage() string      { return "tarevity shell" }
func (c *ShellCmd) NeedsSession() bool { return true }

func (c *ShellCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	reg := c.Registry
	if reg == nil {
		reg = DefaultRegistry
	}

	if !cfg.Quiet {
		output.FormatSectionHeader(out, "tarevity shell (quit to exit)")
	}

	scanner := bufio.NewScanner(in)
	for {
		if !cfg.Quiet {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			break
		}
		if ctx.Err() != nil {
			return exitcode.Success
		}
		c.runLine(ctx, reg, cfg, sess, fields, out, errOut)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}

func (c *ShellCmd) runLine(ctx context.Context, reg *Registry, cfg *config.Config, sess *session.Session, fields []string, out, errOut io.Writer) int {
	cmd, ok := reg.Find(fields[0])
	if !ok {
		return usageError(errOut, "unknown command: %s", fields[0])
	}
	switch cmd.Name() {
	case "shell", "serve", "login", "logout":
		return usageError(errOut, "not available in shell: %s", cmd.Name())
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	rest, code, ok := ParseFlags(fs, fields[1:], errOut)
	if !ok {
		return code
	}

	var s *session.Session
	if cmd.NeedsSession() {
		s = sess
	}
	return cmd.Run(ctx, cfg, s, rest, out, errOut)
}
