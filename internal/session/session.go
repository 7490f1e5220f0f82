// Package session wires a record store, the optimistic cache and the
// mutation coordinator for one CLI invocation or shell.
package session

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"tarevity/internal/cache"
	"tarevity/internal/clock"
	"tarevity/internal/config"
	"tarevity/internal/logging"
	"tarevity/internal/mutation"
	"tarevity/internal/notify"
	"tarevity/internal/service"
)

// Deps are the collaborators of a session. Store is required; the rest
// default to no-ops or real implementations.
type Deps struct {
	Store         service.RecordStore
	Notifications notify.Repository
	Suppressor    notify.Suppressor
	Clock         clock.Clock
	Logger        logrus.FieldLogger
	Reporter      mutation.Reporter
}

// Session holds the per-invocation state.
type Session struct {
	Config    *config.Config
	Log       logrus.FieldLogger
	Store     service.RecordStore
	Cache     *cache.Cache
	Mutations *mutation.Coordinator

	// Notifications and Dismisser are nil when no notification repository
	// is configured.
	Notifications notify.Repository
	Dismisser     *notify.Dismisser

	closers []func()
}

// New builds a session over deps.Store.
func New(cfg *config.Config, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}

	s := &Session{
		Config:        cfg,
		Log:           deps.Logger,
		Store:         deps.Store,
		Notifications: deps.Notifications,
	}
	s.Cache = cache.New(deps.Store.List, cache.Options{
		StaleTime: cfg.StaleTime,
		GCTime:    cfg.GCTime,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	})
	s.Mutations = mutation.New(s.Cache, deps.Store, mutation.Options{
		SettleDelay: cfg.SettleDelay,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
		Reporter:    deps.Reporter,
		OnDeleted:   s.taskDeleted,
	})
	if deps.Notifications != nil {
		if deps.Suppressor == nil {
			deps.Logger.Warn("no notification preference store; dismissals will not mute tasks")
		}
		s.Dismisser = notify.NewDismisser(deps.Notifications, deps.Suppressor, deps.Logger)
	}
	return s
}

// AddCloser registers f to run on Close, in reverse order of registration.
func (s *Session) AddCloser(f func()) {
	s.closers = append(s.closers, f)
}

// Close cancels pending settles and releases backend connections.
func (s *Session) Close() {
	s.Mutations.Close()
	s.Cache.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// taskDeleted drops the deleted task's notifications so they do not point
// at a missing task.
func (s *Session) taskDeleted(id string) {
	if s.Notifications == nil || s.Config.UserID == "" {
		return
	}
	n, err := s.Notifications.DeleteByTodo(context.Background(), s.Config.UserID, id)
	if err != nil {
		s.Log.WithError(err).WithField("todo_id", id).Warn("failed to drop notifications of deleted task")
		return
	}
	s.Log.WithFields(logrus.Fields{"todo_id": id, "count": n}).Debug("dropped notifications of deleted task")
}

// ConsoleReporter prints mutation outcomes for the CLI.
type ConsoleReporter struct {
	Out    io.Writer
	ErrOut io.Writer
	Quiet  bool
}

func (r ConsoleReporter) Success(msg string) {
	if !r.Quiet && r.Out != nil {
		fmt.Fprintln(r.Out, msg)
	}
}

func (r ConsoleReporter) Failure(msg string) {
	if r.ErrOut != nil {
		fmt.Fprintf(r.ErrOut, "error: %s\n", msg)
	}
}
