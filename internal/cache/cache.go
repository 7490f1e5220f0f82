// Package cache holds the client-side view of the task collection.
//
// The cache is a single versioned value that mutations may change
// speculatively before the store confirms them. Each method is atomic, but
// nothing serializes the lifecycles of concurrent mutations: a rollback
// restores that mutation's own snapshot of the whole collection and can
// overwrite another mutation's still-pending change. The settle step of every
// mutation invalidates the collection, and the next Fetch repairs the drift.
package cache

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tarevity/internal/clock"
	"tarevity/internal/service"
)

// TasksKey identifies the collection of all tasks owned by the session.
const TasksKey = "todos"

const (
	// DefaultStaleTime is how long a fetched collection is served without refetching.
	DefaultStaleTime = 1 * time.Minute

	// DefaultGCTime is how long an untouched collection is kept before it is dropped.
	DefaultGCTime = 5 * time.Minute
)

// Fetcher loads the authoritative collection.
type Fetcher func(ctx context.Context) ([]service.Task, error)

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	Key       string
	StaleTime time.Duration
	GCTime    time.Duration // negative disables collection
	Clock     clock.Clock
	Logger    logrus.FieldLogger
}

// Snapshot is an independent copy of the collection, used for rollback.
type Snapshot struct {
	tasks []service.Task
}

// Tasks returns a copy of the snapshot's records.
func (s Snapshot) Tasks() []service.Task {
	return cloneTasks(s.tasks)
}

// State describes the cache for diagnostics.
type State struct {
	Key         string
	Present     bool
	Len         int
	FetchedAt   time.Time
	Invalidated bool
	Fetching    bool
}

// Cache is the optimistic view of the task collection.
type Cache struct {
	key       string
	fetch     Fetcher
	clock     clock.Clock
	log       logrus.FieldLogger
	staleTime time.Duration
	gcTime    time.Duration

	mu          sync.Mutex
	tasks       []service.Task
	present     bool
	fetchedAt   time.Time
	invalidated bool
	gen         uint64
	cancelQuery context.CancelFunc
	gcTimer     clock.Timer
	closed      bool
}

// New creates an empty cache backed by fetch.
func New(fetch Fetcher, opts Options) *Cache {
	if opts.Key == "" {
		opts.Key = TasksKey
	}
	if opts.StaleTime == 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.GCTime == 0 {
		opts.GCTime = DefaultGCTime
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	return &Cache{
		key:       opts.Key,
		fetch:     fetch,
		clock:     opts.Clock,
		log:       opts.Logger.WithField("cache", opts.Key),
		staleTime: opts.StaleTime,
		gcTime:    opts.GCTime,
	}
}

// Key returns the collection identity.
func (c *Cache) Key() string { return c.key }

// Read returns the current collection. It never blocks on the store; an
// absent collection reads as empty.
func (c *Cache) Read() []service.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	return cloneTasks(c.tasks)
}

// Replace stores transform(current) as the new collection. transform gets
// its own copy and must not call back into the cache.
func (c *Cache) Replace(transform func([]service.Task) []service.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := transform(cloneTasks(c.tasks))
	if next == nil {
		next = []service.Task{}
	}
	c.tasks = next
	c.present = true
	c.touchLocked()
}

// Snapshot captures the collection for a later Restore.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{tasks: cloneTasks(c.tasks)}
}

// Restore overwrites the collection with snap.
func (c *Cache) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = cloneTasks(snap.tasks)
	c.present = true
	c.touchLocked()
}

// Invalidate marks the collection stale; the next Fetch goes to the store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = true
	c.log.Debug("collection invalidated")
}

// Stale reports whether the next Fetch will hit the store.
func (c *Cache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.freshLocked()
}

// CancelQueries cancels an in-flight Fetch so its result is never stored.
func (c *Cache) CancelQueries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// Fetch returns the collection, refetching it from the store when it is
// stale, invalidated or absent. A Fetch started later, or a CancelQueries
// call, supersedes one in flight: the superseded call's result is discarded
// and it returns the current cached collection instead.
func (c *Cache) Fetch(ctx context.Context) ([]service.Task, error) {
	c.mu.Lock()
	c.touchLocked()
	if c.freshLocked() {
		out := cloneTasks(c.tasks)
		c.mu.Unlock()
		return out, nil
	}
	c.cancelLocked()
	c.gen++
	gen := c.gen
	qctx, cancel := context.WithCancel(ctx)
	c.cancelQuery = cancel
	c.mu.Unlock()

	tasks, err := c.fetch(qctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()
	if gen != c.gen {
		c.log.WithField("generation", gen).Debug("fetch superseded")
		return cloneTasks(c.tasks), nil
	}
	c.cancelQuery = nil
	if err != nil {
		c.log.WithError(err).Warn("fetch failed")
		return nil, err
	}
	c.tasks = cloneTasks(tasks)
	if c.tasks == nil {
		c.tasks = []service.Task{}
	}
	c.present = true
	c.fetchedAt = c.clock.Now()
	c.invalidated = false
	c.log.WithField("count", len(c.tasks)).Debug("collection fetched")
	return cloneTasks(c.tasks), nil
}

// State returns a description of the cache.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Key:         c.key,
		Present:     c.present,
		Len:         len(c.tasks),
		FetchedAt:   c.fetchedAt,
		Invalidated: c.invalidated,
		Fetching:    c.cancelQuery != nil,
	}
}

// Close cancels in-flight fetches and the collection timer.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	if c.gcTimer != nil {
		c.gcTimer.Stop()
		c.gcTimer = nil
	}
	c.closed = true
}

func (c *Cache) freshLocked() bool {
	if !c.present || c.invalidated || c.fetchedAt.IsZero() {
		return false
	}
	return c.clock.Now().Sub(c.fetchedAt) < c.staleTime
}

func (c *Cache) cancelLocked() {
	if c.cancelQuery != nil {
		c.cancelQuery()
		c.cancelQuery = nil
		c.gen++
	}
}

// touchLocked restarts the collection timer.
func (c *Cache) touchLocked() {
	if c.closed || c.gcTime < 0 {
		return
	}
	if c.gcTimer != nil {
		c.gcTimer.Stop()
	}
	c.gcTimer = c.clock.AfterFunc(c.gcTime, c.collect)
}

func (c *Cache) collect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelQuery != nil || !c.present {
		return
	}
	c.tasks = nil
	c.present = false
	c.fetchedAt = time.Time{}
	c.invalidated = false
	c.gcTimer = nil
	c.log.Debug("collection collected")
}

func cloneTasks(in []service.Task) []service.Task {
	out := make([]service.Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
