// Package main is the entry point for the tarevity CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tarevity/internal/cli"
	"tarevity/internal/commands"
	"tarevity/internal/session"
)

func main() {
	// Cancel on interrupt; the serve command shuts down on it
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, session.Open)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
