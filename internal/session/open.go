package session

import (
	"context"
	"fmt"

	"tarevity/internal/backend/breaker"
	"tarevity/internal/backend/cassandra"
	"tarevity/internal/backend/googletasks"
	"tarevity/internal/backend/mongostore"
	"tarevity/internal/config"
	"tarevity/internal/logging"
	"tarevity/internal/notify"
	"tarevity/internal/service"
)

// Open connects the backends selected by cfg and returns a session.
// Collaborators already set in deps are kept.
func Open(ctx context.Context, cfg *config.Config, deps Deps) (*Session, error) {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	log := deps.Logger
	var closers []func()
	fail := func(err error) (*Session, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}

	if deps.Store == nil {
		switch cfg.Backend {
		case config.BackendMongo:
			client, err := mongostore.Connect(ctx, cfg.MongoURI)
			if err != nil {
				return fail(fmt.Errorf("mongo: %w", err))
			}
			closers = append(closers, func() { client.Disconnect(context.Background()) })
			db := client.Database(cfg.MongoDB)
			deps.Store = mongostore.NewTaskStore(db, cfg.UserID)
			if deps.Suppressor == nil {
				deps.Suppressor = mongostore.NewPreferences(db)
			}
			log.WithField("db", cfg.MongoDB).Debug("using mongo backend")

		default:
			if !cfg.HasOAuthClient() {
				return fail(service.E(service.KindUnauthenticated, "", "oauth_client.json not found in "+cfg.Dir))
			}
			if !cfg.HasToken() {
				return fail(service.E(service.KindUnauthenticated, "", "not logged in (run: tarevity login)"))
			}
			client, err := googletasks.New(ctx, cfg)
			if err != nil {
				return fail(service.Wrap(service.KindUnauthenticated, "google", err))
			}
			deps.Store = client
			log.Debug("using google tasks backend")
		}
		deps.Store = breaker.New(deps.Store, breaker.DefaultSettings(), log)
	}

	if deps.Notifications == nil && len(cfg.CassandraHosts) > 0 {
		repo, err := cassandra.NewNotificationRepo(cfg.CassandraHosts, cfg.CassandraKeyspace, log)
		if err != nil {
			return fail(fmt.Errorf("cassandra: %w", err))
		}
		closers = append(closers, repo.Close)
		attachNotifications(&deps, repo, repo.Preferences())
	}

	s := New(cfg, deps)
	for _, c := range closers {
		s.AddCloser(c)
	}
	return s, nil
}

// attachNotifications sets the notification repository. prefs becomes the
// suppressor unless the task backend already supplied one.
func attachNotifications(deps *Deps, repo notify.Repository, prefs notify.Suppressor) {
	deps.Notifications = repo
	if deps.Suppressor == nil {
		deps.Suppressor = prefs
	}
}
