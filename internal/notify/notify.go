// Package notify dismisses task notifications and mutes future ones.
package notify

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"tarevity/internal/service"
)

// Notification is a reminder about a task.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TodoID    string    `json:"todo_id"`
	Type      string    `json:"notification_type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"read"`
}

// Repository stores notifications. All methods are scoped to one user.
// Fetch returns (nil, nil) when the notification does not exist.
type Repository interface {
	List(ctx context.Context, userID string) ([]Notification, error)
	Fetch(ctx context.Context, userID, id string) (*Notification, error)
	DeleteByID(ctx context.Context, userID, id string) (int, error)
	DeleteByTodo(ctx context.Context, userID, todoID string) (int, error)
	DeleteAll(ctx context.Context, userID string) (int, error)
}

// Suppressor mutes future notifications for a task.
type Suppressor interface {
	Suppress(ctx context.Context, userID, todoID string) error
}

// Request selects what to dismiss. ID takes precedence over TodoID, TodoID
// over All.
type Request struct {
	ID     string `json:"id,omitempty"`
	TodoID string `json:"todoId,omitempty"`
	All    bool   `json:"all,omitempty"`
}

// Result is the outcome of a dismissal.
type Result struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Dismisser deletes notifications, muting the task first when the dismissal
// is scoped to a single task.
type Dismisser struct {
	repo     Repository
	suppress Suppressor
	log      logrus.FieldLogger
}

// NewDismisser creates a Dismisser. suppress and log may be nil.
func NewDismisser(repo Repository, suppress Suppressor, log logrus.FieldLogger) *Dismisser {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Dismisser{
		repo:     repo,
		suppress: suppress,
		log:      log.WithField("component", "dismiss"),
	}
}

// Dismiss runs one dismissal for userID.
func (d *Dismisser) Dismiss(ctx context.Context, userID string, req Request) (Result, error) {
	if userID == "" {
		return Result{}, service.ErrUnauthenticated
	}
	log := d.log.WithField("user_id", userID)

	switch {
	case req.ID != "":
		n, err := d.repo.Fetch(ctx, userID, req.ID)
		if err != nil {
			return Result{}, &service.Error{Kind: service.KindTransport, Op: "fetch notification", Message: "Error fetching notification", Err: err}
		}
		if n == nil {
			return Result{}, service.E(service.KindNotFound, "dismiss", "Notification not found")
		}
		d.mute(ctx, log, userID, n.TodoID)
		if _, err := d.repo.DeleteByID(ctx, userID, req.ID); err != nil {
			return Result{}, deleteError(err)
		}
		log.WithField("id", req.ID).Info("notification dismissed")
		return Result{Message: "Notification deleted successfully", Count: 1}, nil

	case req.TodoID != "":
		d.mute(ctx, log, userID, req.TodoID)
		count, err := d.repo.DeleteByTodo(ctx, userID, req.TodoID)
		if err != nil {
			return Result{}, deleteError(err)
		}
		log.WithFields(logrus.Fields{"todo_id": req.TodoID, "count": count}).Info("task notifications dismissed")
		return Result{Message: "Notifications for todo deleted", Count: count}, nil

	case req.All:
		count, err := d.repo.DeleteAll(ctx, userID)
		if err != nil {
			return Result{}, deleteError(err)
		}
		log.WithField("count", count).Info("all notifications dismissed")
		return Result{Message: "All notifications deleted", Count: count}, nil
	}

	return Result{}, service.E(service.KindMissingParameter, "dismiss", "Missing id, todoId, or all parameter")
}

// mute is best effort: a failure is logged and the dismissal goes ahead.
func (d *Dismisser) mute(ctx context.Context, log logrus.FieldLogger, userID, todoID string) {
	if d.suppress == nil || todoID == "" {
		return
	}
	if err := d.suppress.Suppress(ctx, userID, todoID); err != nil {
		log.WithError(err).WithField("todo_id", todoID).Warn("failed to mute notifications")
	}
}

func deleteError(err error) error {
	return &service.Error{Kind: service.KindTransport, Op: "delete notifications", Message: "Error deleting notifications", Err: err}
}
