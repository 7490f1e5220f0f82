// Package cassandra stores notifications in Cassandra.
package cassandra

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/gocql/gocql"
	"github.com/sirupsen/logrus"

	"tarevity/internal/notify"
)

// DefaultKeyspace is used when no keyspace is configured.
const DefaultKeyspace = "notifications"

var keyspaceName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,47}$`)

// NotificationRepo implements notify.Repository.
type NotificationRepo struct {
	session *gocql.Session
	log     logrus.FieldLogger
}

// NewNotificationRepo connects to hosts, creating keyspace and the
// notifications and preferences tables when they do not exist.
func NewNotificationRepo(hosts []string, keyspace string, log logrus.FieldLogger) (*NotificationRepo, error) {
	if keyspace == "" {
		keyspace = DefaultKeyspace
	}
	if !keyspaceName.MatchString(keyspace) {
		return nil, fmt.Errorf("invalid keyspace name %q", keyspace)
	}
	log = log.WithField("component", "cassandra")

	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = "system"
	cluster.Timeout = 5 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connecting to cassandra: %w", err)
	}
	if err := session.Query(createKeyspaceCQL(keyspace)).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("creating keyspace: %w", err)
	}
	session.Close()

	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connecting to keyspace %s: %w", keyspace, err)
	}

	r := &NotificationRepo{session: session, log: log}
	if err := r.createTable(); err != nil {
		session.Close()
		return nil, err
	}
	log.WithField("keyspace", keyspace).Info("connected to cassandra")
	return r, nil
}

// Close closes the session.
func (r *NotificationRepo) Close() {
	r.session.Close()
}

func createKeyspaceCQL(keyspace string) string {
	return fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, keyspace)
}

func (r *NotificationRepo) createTable() error {
	err := r.session.Query(`CREATE TABLE IF NOT EXISTS notifications (
			user_id TEXT,
			id UUID,
			todo_id TEXT,
			notification_type TEXT,
			message TEXT,
			created_at TIMESTAMP,
			is_read BOOLEAN,
			PRIMARY KEY ((user_id), id)
		)`).Exec()
	if err != nil {
		return fmt.Errorf("creating notifications table: %w", err)
	}
	if err := r.session.Query(createPreferencesCQL()).Exec(); err != nil {
		return fmt.Errorf("creating %s table: %w", PreferencesTable, err)
	}
	return nil
}

const selectColumns = `SELECT id, user_id, todo_id, notification_type, message, created_at, is_read FROM notifications`

func (r *NotificationRepo) List(ctx context.Context, userID string) ([]notify.Notification, error) {
	iter := r.session.Query(selectColumns+` WHERE user_id = ?`, userID).WithContext(ctx).Iter()
	var out []notify.Notification
	for {
		n, ok := scan(iter)
		if !ok {
			break
		}
		out = append(out, n)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

// Fetch returns (nil, nil) for unknown or malformed IDs.
func (r *NotificationRepo) Fetch(ctx context.Context, userID, id string) (*notify.Notification, error) {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, nil
	}
	iter := r.session.Query(selectColumns+` WHERE user_id = ? AND id = ?`, userID, uid).WithContext(ctx).Iter()
	n, ok := scan(iter)
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("fetching notification: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (r *NotificationRepo) DeleteByID(ctx context.Context, userID, id string) (int, error) {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return 0, nil
	}
	if err := r.session.Query(`DELETE FROM notifications WHERE user_id = ? AND id = ?`, userID, uid).WithContext(ctx).Exec(); err != nil {
		return 0, fmt.Errorf("deleting notification: %w", err)
	}
	return 1, nil
}

// DeleteByTodo selects the matching IDs first so it can report a count;
// todo_id is not part of the primary key.
func (r *NotificationRepo) DeleteByTodo(ctx context.Context, userID, todoID string) (int, error) {
	list, err := r.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	batch := r.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for _, n := range list {
		if n.TodoID != todoID {
			continue
		}
		uid, _ := gocql.ParseUUID(n.ID)
		batch.Query(`DELETE FROM notifications WHERE user_id = ? AND id = ?`, userID, uid)
	}
	if batch.Size() == 0 {
		return 0, nil
	}
	if err := r.session.ExecuteBatch(batch); err != nil {
		return 0, fmt.Errorf("deleting todo notifications: %w", err)
	}
	return batch.Size(), nil
}

func (r *NotificationRepo) DeleteAll(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.session.Query(`SELECT COUNT(*) FROM notifications WHERE user_id = ?`, userID).WithContext(ctx).Scan(&count); err != nil && !errors.Is(err, gocql.ErrNotFound) {
		return 0, fmt.Errorf("counting notifications: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	if err := r.session.Query(`DELETE FROM notifications WHERE user_id = ?`, userID).WithContext(ctx).Exec(); err != nil {
		return 0, fmt.Errorf("deleting notifications: %w", err)
	}
	return count, nil
}

func scan(iter *gocql.Iter) (notify.Notification, bool) {
	var (
		n  notify.Notification
		id gocql.UUID
	)
	if !iter.Scan(&id, &n.UserID, &n.TodoID, &n.Type, &n.Message, &n.CreatedAt, &n.IsRead) {
		return notify.Notification{}, false
	}
	n.ID = id.String()
	return n, true
}
