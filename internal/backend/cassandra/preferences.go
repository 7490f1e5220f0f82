package cassandra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

// PreferencesTable holds per-task notification preferences.
const PreferencesTable = "notification_preferences"

// Preferences stores which tasks a user has muted. It implements
// notify.Suppressor and shares the repository's session.
type Preferences struct {
	session *gocql.Session
}

// Preferences returns the preference store in the repository's keyspace.
func (r *NotificationRepo) Preferences() *Preferences {
	return &Preferences{session: r.session}
}

func createPreferencesCQL() string {
	return `CREATE TABLE IF NOT EXISTS ` + PreferencesTable + ` (
			user_id TEXT,
			todo_id TEXT,
			muted BOOLEAN,
			updated_at TIMESTAMP,
			PRIMARY KEY ((user_id), todo_id)
		)`
}

// Suppress mutes future notifications for todoID. Writing the row again is
// harmless.
func (p *Preferences) Suppress(ctx context.Context, userID, todoID string) error {
	err := p.session.Query(`INSERT INTO `+PreferencesTable+` (user_id, todo_id, muted, updated_at) VALUES (?, ?, ?, ?)`,
		userID, todoID, true, time.Now().UTC()).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("muting notifications: %w", err)
	}
	return nil
}

// Muted reports whether todoID is muted for userID.
func (p *Preferences) Muted(ctx context.Context, userID, todoID string) (bool, error) {
	var muted bool
	err := p.session.Query(`SELECT muted FROM `+PreferencesTable+` WHERE user_id = ? AND todo_id = ?`,
		userID, todoID).WithContext(ctx).Scan(&muted)
	if errors.Is(err, gocql.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading notification preference: %w", err)
	}
	return muted, nil
}
