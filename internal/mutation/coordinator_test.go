package mutation_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"tarevity/internal/cache"
	"tarevity/internal/clock"
	"tarevity/internal/mutation"
	"tarevity/internal/service"
	"tarevity/internal/testutil"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	store    *testutil.FakeStore
	clock    *clock.Fake
	cache    *cache.Cache
	coord    *mutation.Coordinator
	reporter *testutil.Reporter
	deleted  []string
}

func newHarness(t *testing.T, seed ...service.Task) *harness {
	t.Helper()
	h := &harness{
		store:    testutil.NewFakeStore(),
		clock:    clock.NewFake(epoch),
		reporter: &testutil.Reporter{},
	}
	h.store.Now = h.clock.Now
	for _, task := range seed {
		h.store.AddTask(task)
	}
	h.cache = cache.New(h.store.List, cache.Options{Clock: h.clock})
	h.coord = mutation.New(h.cache, h.store, mutation.Options{
		Clock:    h.clock,
		Reporter: h.reporter,
		OnDeleted: func(id string) {
			h.deleted = append(h.deleted, id)
		},
	})
	if _, err := h.cache.Fetch(context.Background()); err != nil {
		t.Fatalf("initial fetch failed: %v", err)
	}
	t.Cleanup(func() {
		h.coord.Close()
		h.cache.Close()
	})
	return h
}

func seedTasks() []service.Task {
	return []service.Task{
		{ID: "t1", Title: "Buy milk", Status: service.StatusActive, Priority: service.PriorityLow, CreatedAt: epoch, UpdatedAt: epoch},
		{ID: "t2", Title: "Write report", Status: service.StatusActive, Priority: service.PriorityHigh, CreatedAt: epoch, UpdatedAt: epoch},
	}
}

func ids(tasks []service.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestCreate_FailureLeavesCacheEmpty(t *testing.T) {
	h := newHarness(t)

	_, err := h.coord.Create(context.Background(), service.NewTask{Title: "   "})
	if service.KindOf(err) != service.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}

	if got := h.cache.Read(); len(got) != 0 {
		t.Errorf("expected empty cache after rollback, got %v", ids(got))
	}
	if len(h.reporter.Failures) != 1 || h.reporter.Failures[0] != "Title is required" {
		t.Errorf("expected validation message, got %v", h.reporter.Failures)
	}
}

func TestCreate_SwapsTemporaryID(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	wantTemp := fmt.Sprintf("temp-%d", epoch.UnixMilli())

	var during []service.Task
	h.store.OnCall = func(op string) {
		if op == "create" {
			during = h.cache.Read()
		}
	}

	created, err := h.coord.Create(context.Background(), service.NewTask{
		Title:    "Call mom",
		Priority: service.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(during) != 3 || during[0].ID != wantTemp {
		t.Fatalf("expected %s prepended while in flight, got %v", wantTemp, ids(during))
	}
	if during[0].UserID != "temp" || during[0].Status != service.StatusActive {
		t.Errorf("unexpected speculative record: %+v", during[0])
	}

	if created.ID != "srv-1" {
		t.Errorf("expected srv-1, got %q", created.ID)
	}
	want := []string{"srv-1", "t1", "t2"}
	if got := ids(h.cache.Read()); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	for _, task := range h.cache.Read() {
		if strings.HasPrefix(task.ID, "temp-") {
			t.Errorf("dangling temporary record %s", task.ID)
		}
	}
	if h.cache.Read()[0].UserID != "u1" {
		t.Errorf("expected server fields to win, got user %q", h.cache.Read()[0].UserID)
	}
}

func TestCreate_TempIDsUniqueWithinMillisecond(t *testing.T) {
	h := newHarness(t)

	var seen []string
	h.store.OnCall = func(op string) {
		if op == "create" {
			seen = append(seen, h.cache.Read()[0].ID)
		}
	}
	h.coord.Create(context.Background(), service.NewTask{Title: "a"})
	h.coord.Create(context.Background(), service.NewTask{Title: "b"})

	if len(seen) != 2 || seen[0] == seen[1] {
		t.Errorf("expected distinct temporary ids, got %v", seen)
	}
}

func TestCreate_ResponseWithoutIDRemovesSpeculativeRecord(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	h.store.CreateResponse = func(stored service.Task) *service.Task {
		stored.ID = ""
		return &stored
	}

	_, err := h.coord.Create(context.Background(), service.NewTask{Title: "Ghost"})
	if service.KindOf(err) != service.KindMalformed {
		t.Fatalf("expected malformed-response, got %v", err)
	}

	want := []string{"t1", "t2"}
	if got := ids(h.cache.Read()); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !h.cache.Stale() {
		t.Error("expected immediate invalidation after malformed response")
	}
	if h.reporter.Failures[0] != "Error creating task" {
		t.Errorf("malformed responses use the generic message, got %q", h.reporter.Failures[0])
	}
}

func TestCreate_NilResponseRollsBack(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	h.store.CreateResponse = func(service.Task) *service.Task { return nil }

	_, err := h.coord.Create(context.Background(), service.NewTask{Title: "Nothing"})
	if !errors.Is(err, service.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload error, got %v", err)
	}
	if got := ids(h.cache.Read()); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("expected rollback, got %v", got)
	}
}

func TestUpdate_CompletionSetsStatus(t *testing.T) {
	h := newHarness(t, seedTasks()...)

	var during service.Task
	h.store.OnCall = func(op string) {
		if op == "update" {
			during, _ = cache.Find(h.cache.Read(), "t1")
		}
	}
	h.clock.Advance(time.Minute / 2)

	got, err := h.coord.Update(context.Background(), "t1", service.TaskPatch{IsCompleted: service.BoolPtr(true)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !during.IsCompleted || during.Status != service.StatusCompleted {
		t.Errorf("expected optimistic completed status, got %+v", during)
	}
	if !during.UpdatedAt.After(epoch) {
		t.Errorf("expected optimistic updated timestamp refresh, got %v", during.UpdatedAt)
	}
	if got.Status != service.StatusCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}
	if h.reporter.Successes[0] != "Task marked as completed" {
		t.Errorf("unexpected message %v", h.reporter.Successes)
	}
}

func TestUpdate_UncompleteMovesBackToActive(t *testing.T) {
	h := newHarness(t, service.Task{ID: "t1", Title: "Done", IsCompleted: true, Status: service.StatusCompleted})

	got, err := h.coord.Update(context.Background(), "t1", service.TaskPatch{IsCompleted: service.BoolPtr(false)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsCompleted || got.Status != service.StatusActive {
		t.Errorf("expected active, got %+v", got)
	}
	if h.reporter.Successes[0] != "Task marked as active" {
		t.Errorf("unexpected message %v", h.reporter.Successes)
	}
}

func TestUpdate_StatusOnlyLeavesCompletion(t *testing.T) {
	h := newHarness(t, service.Task{ID: "t1", Title: "Ship", IsCompleted: true, Status: service.StatusCompleted})

	var during service.Task
	h.store.OnCall = func(op string) {
		if op == "update" {
			during, _ = cache.Find(h.cache.Read(), "t1")
		}
	}

	got, err := h.coord.Update(context.Background(), "t1", service.TaskPatch{Status: service.StatusPtr(service.StatusReview)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if during.Status != service.StatusReview || !during.IsCompleted {
		t.Errorf("status-only update must not touch completion, got %+v", during)
	}
	if got.Status != service.StatusReview || !got.IsCompleted {
		t.Errorf("unexpected reconciled record %+v", got)
	}
	if h.reporter.Successes[0] != "Task moved to review" {
		t.Errorf("unexpected message %v", h.reporter.Successes)
	}
}

func TestUpdate_FailureRestoresRecord(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	before := h.cache.Read()
	h.store.UpdateErr = service.Wrap(service.KindTransport, "update", errors.New("connection reset"))

	_, err := h.coord.Update(context.Background(), "t2", service.TaskPatch{Title: service.StringPtr("Renamed")})
	if service.KindOf(err) != service.KindTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if !reflect.DeepEqual(before, h.cache.Read()) {
		t.Errorf("expected rollback to snapshot\nwant %+v\ngot  %+v", before, h.cache.Read())
	}
	if h.reporter.Failures[0] != "network error: task store unreachable" {
		t.Errorf("unexpected message %v", h.reporter.Failures)
	}
}

func TestUpdate_UncachedRecordStillCallsStore(t *testing.T) {
	h := newHarness(t)
	h.store.AddTask(service.Task{ID: "late", Title: "Added elsewhere"})

	got, err := h.coord.Update(context.Background(), "late", service.TaskPatch{Title: service.StringPtr("Renamed")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.store.Calls("update") != 1 {
		t.Errorf("expected store call, got %d", h.store.Calls("update"))
	}
	if got.Title != "Renamed" {
		t.Errorf("expected server record, got %+v", got)
	}
	if len(h.cache.Read()) != 0 {
		t.Errorf("cache should be untouched, got %v", ids(h.cache.Read()))
	}
}

func TestUpdate_NotFoundRollsBack(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	h.store.Delete(context.Background(), "t1")

	_, err := h.coord.Update(context.Background(), "t1", service.TaskPatch{Title: service.StringPtr("x")})
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	task, _ := cache.Find(h.cache.Read(), "t1")
	if task.Title != "Buy milk" {
		t.Errorf("expected restored title, got %q", task.Title)
	}
	if h.reporter.Failures[0] != "Error updating task" {
		t.Errorf("not-found uses the generic message, got %q", h.reporter.Failures[0])
	}
}

func TestUpdate_MalformedResponseRollsBack(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	h.store.UpdateResponse = func(stored service.Task) *service.Task {
		stored.ID = ""
		return &stored
	}

	_, err := h.coord.Update(context.Background(), "t1", service.TaskPatch{Title: service.StringPtr("Corrupt")})
	if service.KindOf(err) != service.KindMalformed {
		t.Fatalf("expected malformed-response, got %v", err)
	}
	task, _ := cache.Find(h.cache.Read(), "t1")
	if task.Title != "Buy milk" {
		t.Errorf("expected speculative change discarded, got %q", task.Title)
	}
}

func TestUpdate_ServerFieldsWin(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	h.store.UpdateResponse = func(stored service.Task) *service.Task {
		stored.Priority = service.PriorityHigh
		return &stored
	}

	got, err := h.coord.Update(context.Background(), "t1", service.TaskPatch{Title: service.StringPtr("Buy oat milk")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cached, _ := cache.Find(h.cache.Read(), "t1")
	if cached.Priority != service.PriorityHigh || got.Priority != service.PriorityHigh {
		t.Errorf("expected server priority, got cached=%v returned=%v", cached.Priority, got.Priority)
	}
	if cached.Title != "Buy oat milk" {
		t.Errorf("expected title, got %q", cached.Title)
	}
}

func TestDelete_SuccessAndHook(t *testing.T) {
	h := newHarness(t, seedTasks()...)

	if err := h.coord.Delete(context.Background(), "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(h.cache.Read()); !reflect.DeepEqual(got, []string{"t2"}) {
		t.Errorf("expected [t2], got %v", got)
	}
	if !reflect.DeepEqual(h.deleted, []string{"t1"}) {
		t.Errorf("expected delete hook for t1, got %v", h.deleted)
	}
	if h.reporter.Successes[0] != "Task deleted successfully" {
		t.Errorf("unexpected message %v", h.reporter.Successes)
	}
}

func TestDelete_FailureRestores(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	h.store.DeleteErr = errors.New("socket closed")

	err := h.coord.Delete(context.Background(), "t1")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := ids(h.cache.Read()); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("expected restored collection, got %v", got)
	}
	if h.reporter.Failures[0] != "unknown error" {
		t.Errorf("unstructured errors must not leak detail, got %q", h.reporter.Failures[0])
	}
	if len(h.deleted) != 0 {
		t.Error("hook must not run on failure")
	}
}

func TestSettle_ResyncsAfterDelay(t *testing.T) {
	h := newHarness(t, seedTasks()...)

	if _, err := h.coord.Update(context.Background(), "t1", service.TaskPatch{Title: service.StringPtr("Buy milk and bread")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Server-side change not reflected in the mutation response.
	h.store.AddTask(service.Task{ID: "t3", Title: "Recurring follow-up"})

	if h.coord.Pending() != 1 {
		t.Fatalf("expected one scheduled settle, got %d", h.coord.Pending())
	}
	got, _ := h.cache.Fetch(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected cached view before settle, got %v", ids(got))
	}

	h.clock.Advance(mutation.DefaultSettleDelay)

	if h.coord.Pending() != 0 {
		t.Errorf("expected settle to have fired, got %d pending", h.coord.Pending())
	}
	got, err := h.cache.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"t1", "t2", "t3"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("expected store state %v after settle, got %v", want, ids(got))
	}
}

func TestSettle_AlsoAfterFailure(t *testing.T) {
	h := newHarness(t, seedTasks()...)
	h.store.CreateErr = service.E(service.KindValidation, "create", "Title too long")
	lists := h.store.Calls("list")

	h.coord.Create(context.Background(), service.NewTask{Title: "x"})
	h.clock.Advance(mutation.DefaultSettleDelay)
	h.cache.Fetch(context.Background())

	if h.store.Calls("list") != lists+1 {
		t.Errorf("expected a refetch after a failed mutation settles")
	}
}

func TestClose_CancelsPendingSettles(t *testing.T) {
	h := newHarness(t, seedTasks()...)

	h.coord.Delete(context.Background(), "t1")
	h.coord.Close()
	h.clock.Advance(time.Second)

	if h.cache.Stale() {
		t.Error("cancelled settle must not invalidate the cache")
	}
}

func TestConcurrentRollbackIsLastWriterWins(t *testing.T) {
	h := newHarness(t, seedTasks()...)

	reached := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.store.OnCall = func(op string) {
		if op == "delete" {
			once.Do(func() { close(reached) })
			<-release
		}
	}
	h.store.DeleteErr = service.Wrap(service.KindTransport, "delete", errors.New("timeout"))

	done := make(chan error, 1)
	go func() { done <- h.coord.Delete(context.Background(), "t1") }()
	<-reached

	if _, err := h.coord.Create(context.Background(), service.NewTask{Title: "Parallel"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(h.cache.Read()); !reflect.DeepEqual(got, []string{"srv-1", "t2"}) {
		t.Fatalf("unexpected interleaved view %v", got)
	}

	close(release)
	<-done

	// The failed delete restores its own snapshot and drops the committed create.
	if got := ids(h.cache.Read()); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Fatalf("expected whole-collection restore, got %v", got)
	}

	h.clock.Advance(mutation.DefaultSettleDelay)
	got, err := h.cache.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"srv-1", "t1", "t2"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("expected settle to heal the drift to %v, got %v", want, ids(got))
	}
}
