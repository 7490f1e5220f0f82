// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tarevity/internal/service"
)

// FakeStore is an in-memory implementation of service.RecordStore for testing.
// It behaves like the remote store: it validates input, assigns srv-N
// identifiers and keeps status consistent with the completion flag.
type FakeStore struct {
	mu     sync.RWMutex
	tasks  []service.Task
	nextID int
	calls  map[string]int

	// Now supplies server timestamps. Defaults to time.Now.
	Now func() time.Time

	// UserID is stamped on created records.
	UserID string

	// Error injection for testing
	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// CreateResponse and UpdateResponse replace the returned payload,
	// for malformed-response tests. The stored record is unaffected.
	CreateResponse func(stored service.Task) *service.Task
	UpdateResponse func(stored service.Task) *service.Task

	// OnCall runs at the start of every call, before any state is touched.
	// Tests use it to block a call or inspect the client mid-flight.
	OnCall func(op string)
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		calls:  make(map[string]int),
		UserID: "u1",
	}
}

// AddTask seeds a record as if it already existed on the server.
func (f *FakeStore) AddTask(t service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Status == "" {
		t.Status = service.StatusActive
	}
	if t.UserID == "" {
		t.UserID = f.UserID
	}
	f.tasks = append(f.tasks, t.Clone())
}

// Tasks returns a copy of the stored records.
func (f *FakeStore) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	for i, t := range f.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Calls returns how many times op was called.
func (f *FakeStore) Calls(op string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[op]
}

func (f *FakeStore) begin(op string) {
	if f.OnCall != nil {
		f.OnCall(op)
	}
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *FakeStore) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// List implements service.RecordStore.
func (f *FakeStore) List(ctx context.Context) ([]service.Task, error) {
	f.begin("list")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Tasks(), nil
}

// Create implements service.RecordStore.
func (f *FakeStore) Create(ctx context.Context, in service.NewTask) (*service.Task, error) {
	f.begin("create")
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, service.E(service.KindValidation, "create", "Title is required")
	}

	f.mu.Lock()
	f.nextID++
	now := f.now()
	t := service.Task{
		ID:          fmt.Sprintf("srv-%d", f.nextID),
		Title:       in.Title,
		IsCompleted: in.IsCompleted,
		Priority:    in.Priority,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      f.UserID,
	}
	if in.Description != nil {
		t.Description = service.StringPtr(*in.Description)
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	if t.Status == "" {
		t.Status = service.StatusActive
	}
	if t.IsCompleted {
		t.Status = service.StatusCompleted
	}
	f.tasks = append([]service.Task{t}, f.tasks...)
	f.mu.Unlock()

	if f.CreateResponse != nil {
		return f.CreateResponse(t.Clone()), nil
	}
	out := t.Clone()
	return &out, nil
}

// Update implements service.RecordStore.
func (f *FakeStore) Update(ctx context.Context, id string, patch service.TaskPatch) (*service.Task, error) {
	f.begin("update")
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, service.E(service.KindValidation, "update", "Title is required")
	}

	f.mu.Lock()
	var stored service.Task
	found := false
	for i, t := range f.tasks {
		if t.ID == id {
			u := patch.Apply(t)
			u.UpdatedAt = f.now()
			f.tasks[i] = u
			stored = u.Clone()
			found = true
			break
		}
	}
	f.mu.Unlock()

	if !found {
		return nil, service.E(service.KindNotFound, "update", "task not found")
	}
	if f.UpdateResponse != nil {
		return f.UpdateResponse(stored), nil
	}
	return &stored, nil
}

// Delete implements service.RecordStore.
func (f *FakeStore) Delete(ctx context.Context, id string) (int, error) {
	f.begin("delete")
	if f.DeleteErr != nil {
		return 0, f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return 1, nil
		}
	}
	return 0, service.E(service.KindNotFound, "delete", "task not found")
}

// Reporter records mutation outcome messages.
type Reporter struct {
	mu        sync.Mutex
	Successes []string
	Failures  []string
}

func (r *Reporter) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Successes = append(r.Successes, msg)
}

func (r *Reporter) Failure(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, msg)
}
