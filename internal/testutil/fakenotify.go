package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tarevity/internal/notify"
)

// FakeNotifications is an in-memory notify.Repository.
type FakeNotifications struct {
	mu    sync.Mutex
	items []notify.Notification

	// Error injection for testing
	FetchErr  error
	DeleteErr error

	// Log records repository calls in order, e.g. "delete-id:<id>".
	Log *CallLog
}

// NewFakeNotifications creates an empty repository.
func NewFakeNotifications() *FakeNotifications {
	return &FakeNotifications{Log: &CallLog{}}
}

// Add stores a notification and returns it with an ID assigned.
func (f *FakeNotifications) Add(userID, todoID, message string) notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := notify.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		TodoID:    todoID,
		Type:      "due_soon",
		Message:   message,
		CreatedAt: time.Now(),
	}
	f.items = append(f.items, n)
	return n
}

// Count returns how many notifications userID has.
func (f *FakeNotifications) Count(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, it := range f.items {
		if it.UserID == userID {
			n++
		}
	}
	return n
}

func (f *FakeNotifications) List(ctx context.Context, userID string) ([]notify.Notification, error) {
	f.Log.Record("list")
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Notification
	for _, it := range f.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *FakeNotifications) Fetch(ctx context.Context, userID, id string) (*notify.Notification, error) {
	f.Log.Record("fetch:" + id)
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID == id && it.UserID == userID {
			n := it
			return &n, nil
		}
	}
	return nil, nil
}

func (f *FakeNotifications) DeleteByID(ctx context.Context, userID, id string) (int, error) {
	f.Log.Record("delete-id:" + id)
	return f.remove(func(n notify.Notification) bool { return n.UserID == userID && n.ID == id })
}

func (f *FakeNotifications) DeleteByTodo(ctx context.Context, userID, todoID string) (int, error) {
	f.Log.Record("delete-todo:" + todoID)
	return f.remove(func(n notify.Notification) bool { return n.UserID == userID && n.TodoID == todoID })
}

func (f *FakeNotifications) DeleteAll(ctx context.Context, userID string) (int, error) {
	f.Log.Record("delete-all")
	return f.remove(func(n notify.Notification) bool { return n.UserID == userID })
}

func (f *FakeNotifications) remove(match func(notify.Notification) bool) (int, error) {
	if f.DeleteErr != nil {
		return 0, f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	removed := 0
	for _, it := range f.items {
		if match(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	f.items = kept
	return removed, nil
}

// FakeSuppressor records Suppress calls.
type FakeSuppressor struct {
	Err error
	Log *CallLog
}

// NewFakeSuppressor returns a suppressor that records into log. A nil log
// gets a private one.
func NewFakeSuppressor(log *CallLog) *FakeSuppressor {
	if log == nil {
		log = &CallLog{}
	}
	return &FakeSuppressor{Log: log}
}

func (s *FakeSuppressor) Suppress(ctx context.Context, userID, todoID string) error {
	s.Log.Record("suppress:" + todoID)
	return s.Err
}

// CallLog is an ordered, concurrency-safe list of call names. Sharing one
// log between fakes captures the order of calls across them.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) Record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}
