package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"tarevity/internal/commands"
	"tarevity/internal/config"
	"tarevity/internal/exitcode"
	"tarevity/internal/logging"
	"tarevity/internal/service"
	"tarevity/internal/session"
)

// SessionFactory opens the session a command runs in. The dispatcher fills
// deps.Logger and deps.Reporter.
type SessionFactory func(ctx context.Context, cfg *config.Config, deps session.Deps) (*session.Session, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  SessionFactory
}

// NewDispatcher creates a new dispatcher. A nil factory connects the
// backends selected by the environment.
func NewDispatcher(registry *commands.Registry, factory SessionFactory) *Dispatcher {
	if factory == nil {
		factory = session.Open
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run looks up the command named by args[0] (list when args is empty),
// runs it and returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		args = []string{"list"}
	}

	// A leading flag is not a command name.
	name := args[0]
	cmd, ok := d.registry.Find(name)
	if strings.HasPrefix(name, "-") || !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	quiet     bool
	debug     bool
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configDir, "config", "", "")
	fs.BoolVar(&f.quiet, "quiet", false, "")
	fs.BoolVar(&f.debug, "debug", false, "")
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	var common commonFlags
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	common.register(fs)
	cmd.RegisterFlags(fs)

	rest, code, ok := commands.ParseFlags(fs, args, errOut)
	if !ok {
		return code
	}

	cfg, err := config.New(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet, cfg.Debug = common.quiet, common.debug
	if err := cfg.LoadEnv(); err != nil {
		fmt.Fprintf(errOut, "error: config error: %v\n", err)
		return exitcode.AuthError
	}

	log := logging.New(logging.Options{
		SystemName: config.AppName,
		File:       cfg.LogPath,
		Debug:      cfg.Debug,
		Stderr:     errOut,
	})
	log.WithFields(logrus.Fields{"command": cmd.Name(), "backend": cfg.Backend}).Debug("dispatch")

	var sess *session.Session
	if cmd.NeedsSession() {
		deps := session.Deps{
			Logger:   log,
			Reporter: session.ConsoleReporter{Out: out, ErrOut: errOut, Quiet: cfg.Quiet},
		}
		sess, err = d.factory(ctx, cfg, deps)
		if err != nil {
			if service.KindOf(err) == service.KindUnauthenticated {
				fmt.Fprintf(errOut, "error: %v\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
		defer sess.Close()
	}

	return cmd.Run(ctx, cfg, sess, rest, out, errOut)
}
