// Package mutation runs task mutations through the optimistic protocol:
// prepare a speculative change in the cache, execute it against the store,
// reconcile or roll back, and schedule a settle that invalidates the cache.
package mutation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tarevity/internal/cache"
	"tarevity/internal/clock"
	"tarevity/internal/service"
)

// DefaultSettleDelay is the delay between a mutation's outcome and the
// invalidation of the collection.
const DefaultSettleDelay = 300 * time.Millisecond

// Reporter receives the user-visible outcome of each mutation.
type Reporter interface {
	Success(msg string)
	Failure(msg string)
}

type nopReporter struct{}

func (nopReporter) Success(string) {}
func (nopReporter) Failure(string) {}

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	SettleDelay time.Duration
	Clock       clock.Clock
	Logger      logrus.FieldLogger
	Reporter    Reporter

	// OnDeleted runs after a successful delete, e.g. to invalidate the
	// notifications that referenced the task.
	OnDeleted func(id string)
}

// Coordinator owns the mutation lifecycle for one cache and one store.
type Coordinator struct {
	cache     *cache.Cache
	store     service.RecordStore
	clock     clock.Clock
	log       logrus.FieldLogger
	report    Reporter
	delay     time.Duration
	onDeleted func(id string)

	mu       sync.Mutex
	settles  map[uint64]clock.Timer
	nextID   uint64
	lastTemp string
	tempSeq  int
	closed   bool
}

// New creates a coordinator for c and store.
func New(c *cache.Cache, store service.RecordStore, opts Options) *Coordinator {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	return &Coordinator{
		cache:     c,
		store:     store,
		clock:     opts.Clock,
		log:       opts.Logger.WithField("component", "mutation"),
		report:    opts.Reporter,
		delay:     opts.SettleDelay,
		onDeleted: opts.OnDeleted,
		settles:   make(map[uint64]clock.Timer),
	}
}

// Create inserts a speculative record with a temporary ID, creates the task
// in the store and swaps the temporary record for the server record.
func (m *Coordinator) Create(ctx context.Context, in service.NewTask) (service.Task, error) {
	defer m.settle()

	m.cache.CancelQueries()
	snap := m.cache.Snapshot()
	now := m.clock.Now()
	tempID := m.tempID(now)
	m.cache.Replace(cache.Prepend(speculative(in, tempID, now)))
	log := m.log.WithFields(logrus.Fields{"op": "create", "temp_id": tempID})
	log.Debug("optimistic insert")

	created, err := m.store.Create(context.WithoutCancel(ctx), in)
	if err != nil {
		return service.Task{}, m.rollback(log, snap, err, "Error creating task")
	}
	if created == nil {
		log.Error("missing data in store response")
		m.cache.Restore(snap)
		m.cache.Invalidate()
		return service.Task{}, m.fail(service.E(service.KindMalformed, "create", "missing data in store response"), "Error creating task")
	}
	if created.ID == "" {
		log.WithField("payload", fmt.Sprintf("%+v", *created)).Error("unexpected store response format")
		m.cache.Replace(cache.RemoveByID(tempID))
		m.cache.Invalidate()
		return service.Task{}, m.fail(service.E(service.KindMalformed, "create", "store response has no id"), "Error creating task")
	}

	result := *created
	m.cache.Replace(cache.MapByID(tempID, func(t service.Task) service.Task {
		result = service.MergeReturned(t, *created)
		return result
	}))
	log.WithField("id", result.ID).Debug("create reconciled")
	m.report.Success("Task created successfully")
	return result, nil
}

// Update applies patch to the cached record, sends it to the store and
// merges the server record back. A record missing from the cache skips the
// optimistic step; the store is still called.
func (m *Coordinator) Update(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	defer m.settle()

	m.cache.CancelQueries()
	snap := m.cache.Snapshot()
	now := m.clock.Now()
	log := m.log.WithFields(logrus.Fields{"op": "update", "id": id})

	var local service.Task
	_, found := cache.Find(snap.Tasks(), id)
	if found {
		m.cache.Replace(cache.MapByID(id, func(t service.Task) service.Task {
			u := patch.Apply(t)
			u.UpdatedAt = now
			local = u
			return u
		}))
		log.Debug("optimistic update")
	} else {
		log.Debug("record not cached, skipping optimistic update")
	}

	updated, err := m.store.Update(context.WithoutCancel(ctx), id, patch)
	if err != nil {
		return service.Task{}, m.rollback(log, snap, err, "Error updating task")
	}
	// A response without an ID counts as a failed update. The cache goes
	// back to the snapshot instead of keeping the speculative record.
	if updated == nil || updated.ID == "" {
		log.WithField("payload", fmt.Sprintf("%+v", updated)).Error("invalid store response")
		m.cache.Restore(snap)
		m.cache.Invalidate()
		return service.Task{}, m.fail(service.E(service.KindMalformed, "update", "invalid store response"), "Error updating task")
	}

	result := service.MergeReturned(local, *updated)
	m.cache.Replace(cache.MapByID(id, func(t service.Task) service.Task {
		result = service.MergeReturned(t, *updated)
		return result
	}))
	log.Debug("update reconciled")
	if msg := updateMessage(patch); msg != "" {
		m.report.Success(msg)
	}
	return result, nil
}

// Delete removes the record from the cache and deletes it in the store.
func (m *Coordinator) Delete(ctx context.Context, id string) error {
	defer m.settle()

	m.cache.CancelQueries()
	snap := m.cache.Snapshot()
	m.cache.Replace(cache.RemoveByID(id))
	log := m.log.WithFields(logrus.Fields{"op": "delete", "id": id})
	log.Debug("optimistic delete")

	n, err := m.store.Delete(context.WithoutCancel(ctx), id)
	if err == nil && n == 0 {
		err = service.E(service.KindNotFound, "delete", "task not found")
	}
	if err != nil {
		return m.rollback(log, snap, err, "Error deleting task")
	}

	m.report.Success("Task deleted successfully")
	if m.onDeleted != nil {
		m.onDeleted(id)
	}
	return nil
}

// Pending returns the number of settles that have not fired.
func (m *Coordinator) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.settles)
}

// Close cancels pending settles. Mutations started afterwards do not settle.
func (m *Coordinator) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.settles {
		t.Stop()
		delete(m.settles, id)
	}
	m.closed = true
}

func (m *Coordinator) rollback(log logrus.FieldLogger, snap cache.Snapshot, err error, fallback string) error {
	m.cache.Restore(snap)
	log.WithError(err).WithField("kind", service.KindOf(err).String()).Warn("mutation failed, rolled back")
	return m.fail(err, fallback)
}

func (m *Coordinator) fail(err error, fallback string) error {
	m.report.Failure(service.UserMessage(err, fallback))
	return err
}

// settle schedules the invalidation that closes any drift left by
// interleaved mutations or server-side derived fields.
func (m *Coordinator) settle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.nextID++
	id := m.nextID
	m.settles[id] = m.clock.AfterFunc(m.delay, func() {
		m.mu.Lock()
		delete(m.settles, id)
		m.mu.Unlock()
		m.cache.Invalidate()
	})
}

// tempID returns temp-<unix millis>, suffixed when two creates share a millisecond.
func (m *Coordinator) tempID(now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("temp-%d", now.UnixMilli())
	if id == m.lastTemp {
		m.tempSeq++
		return fmt.Sprintf("%s-%d", id, m.tempSeq)
	}
	m.lastTemp = id
	m.tempSeq = 0
	return id
}

func speculative(in service.NewTask, id string, now time.Time) service.Task {
	status := in.Status
	if status == "" {
		status = service.StatusActive
	}
	t := service.Task{
		ID:          id,
		Title:       in.Title,
		IsCompleted: in.IsCompleted,
		Priority:    in.Priority,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      "temp",
	}
	if in.Description != nil {
		t.Description = service.StringPtr(*in.Description)
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	return t
}

func updateMessage(p service.TaskPatch) string {
	switch {
	case p.IsCompleted != nil:
		if *p.IsCompleted {
			return "Task marked as completed"
		}
		return "Task marked as active"
	case p.Status != nil:
		switch *p.Status {
		case service.StatusReview:
			return "Task moved to review"
		case service.StatusActive:
			return "Task approved and moved to active"
		}
		return ""
	}
	return "Task updated successfully"
}
