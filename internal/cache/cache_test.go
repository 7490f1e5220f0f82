package cache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"tarevity/internal/clock"
	"tarevity/internal/service"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleTasks() []service.Task {
	desc := "weekly"
	due := epoch.Add(48 * time.Hour)
	return []service.Task{
		{ID: "t1", Title: "Buy milk", Status: service.StatusActive, Priority: service.PriorityLow, UserID: "u1"},
		{ID: "t2", Title: "Write report", Description: &desc, DueDate: &due, Status: service.StatusReview, Priority: service.PriorityHigh, UserID: "u1"},
	}
}

func staticFetcher(tasks []service.Task, calls *int) Fetcher {
	return func(ctx context.Context) ([]service.Task, error) {
		*calls++
		return tasks, nil
	}
}

func newTestCache(fetch Fetcher) (*Cache, *clock.Fake) {
	fc := clock.NewFake(epoch)
	return New(fetch, Options{Clock: fc}), fc
}

func TestRead_AbsentIsEmpty(t *testing.T) {
	c, _ := newTestCache(nil)

	got := c.Read()
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
	if c.State().Present {
		t.Error("expected collection to be absent")
	}
}

func TestReplace_Transforms(t *testing.T) {
	c, _ := newTestCache(nil)
	c.Restore(Snapshot{tasks: sampleTasks()})

	c.Replace(Prepend(service.Task{ID: "temp-1", Title: "New"}))
	got := c.Read()
	if len(got) != 3 || got[0].ID != "temp-1" {
		t.Fatalf("expected temp-1 first, got %v", ids(got))
	}

	c.Replace(MapByID("t2", func(t service.Task) service.Task {
		t.Title = "Write final report"
		return t
	}))
	if task, _ := Find(c.Read(), "t2"); task.Title != "Write final report" {
		t.Errorf("expected mapped title, got %q", task.Title)
	}

	c.Replace(RemoveByID("t1"))
	if _, ok := Find(c.Read(), "t1"); ok {
		t.Error("expected t1 to be removed")
	}
	if want := []string{"temp-1", "t2"}; !reflect.DeepEqual(ids(c.Read()), want) {
		t.Errorf("expected %v, got %v", want, ids(c.Read()))
	}
}

func TestSnapshot_IsIndependent(t *testing.T) {
	c, _ := newTestCache(nil)
	c.Restore(Snapshot{tasks: sampleTasks()})

	snap := c.Snapshot()
	c.Replace(MapByID("t2", func(t service.Task) service.Task {
		*t.Description = "mutated through pointer"
		return t
	}))

	orig, _ := Find(snap.Tasks(), "t2")
	if *orig.Description != "weekly" {
		t.Errorf("snapshot aliased a pointer field: %q", *orig.Description)
	}
}

func TestRestore_RollbackIdempotence(t *testing.T) {
	c, _ := newTestCache(nil)
	c.Restore(Snapshot{tasks: sampleTasks()})
	before := c.Read()

	snap := c.Snapshot()
	c.Replace(Prepend(service.Task{ID: "temp-9", Title: "x"}))
	c.Replace(RemoveByID("t1"))
	c.Replace(MapByID("t2", func(t service.Task) service.Task {
		t.IsCompleted = true
		return t
	}))
	c.Restore(snap)

	if !reflect.DeepEqual(before, c.Read()) {
		t.Errorf("restore did not return to snapshot state\nwant %+v\ngot  %+v", before, c.Read())
	}

	c.Restore(snap)
	if !reflect.DeepEqual(before, c.Read()) {
		t.Error("second restore changed the collection")
	}
}

func TestFetch_FreshUntilStaleTime(t *testing.T) {
	calls := 0
	c, fc := newTestCache(staticFetcher(sampleTasks(), &calls))
	ctx := context.Background()

	if _, err := c.Fetch(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Fetch(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 store call while fresh, got %d", calls)
	}

	fc.Advance(DefaultStaleTime)
	if !c.Stale() {
		t.Error("expected cache to be stale after stale time")
	}
	if _, err := c.Fetch(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected refetch after stale time, got %d calls", calls)
	}
}

func TestFetch_InvalidateForcesRefetch(t *testing.T) {
	calls := 0
	c, _ := newTestCache(staticFetcher(sampleTasks(), &calls))
	ctx := context.Background()

	c.Fetch(ctx)
	c.Invalidate()
	if !c.Stale() {
		t.Fatal("expected stale after Invalidate")
	}
	c.Fetch(ctx)
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if c.Stale() {
		t.Error("expected fresh after refetch")
	}
}

func TestFetch_ErrorKeepsData(t *testing.T) {
	fail := false
	c, _ := newTestCache(func(ctx context.Context) ([]service.Task, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return sampleTasks(), nil
	})
	ctx := context.Background()

	c.Fetch(ctx)
	c.Invalidate()
	fail = true
	if _, err := c.Fetch(ctx); err == nil {
		t.Fatal("expected error")
	}
	if len(c.Read()) != 2 {
		t.Errorf("expected cached data to survive a failed fetch, got %d", len(c.Read()))
	}
}

func TestFetch_CancelQueriesDiscardsResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	c, _ := newTestCache(func(ctx context.Context) ([]service.Task, error) {
		close(started)
		<-release
		return sampleTasks(), nil
	})

	var wg sync.WaitGroup
	var got []service.Task
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, _ = c.Fetch(context.Background())
	}()

	<-started
	c.CancelQueries()
	c.Replace(Prepend(service.Task{ID: "temp-1", Title: "optimistic"}))
	close(release)
	wg.Wait()

	if want := []string{"temp-1"}; !reflect.DeepEqual(ids(c.Read()), want) {
		t.Errorf("cancelled fetch overwrote the optimistic write: %v", ids(c.Read()))
	}
	if !reflect.DeepEqual(ids(got), []string{"temp-1"}) {
		t.Errorf("superseded fetch should return the current view, got %v", ids(got))
	}
}

func TestFetch_NewerFetchSupersedes(t *testing.T) {
	var mu sync.Mutex
	first := true
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	c, _ := newTestCache(func(ctx context.Context) ([]service.Task, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			close(firstStarted)
			select {
			case <-releaseFirst:
			case <-ctx.Done():
			}
			return []service.Task{{ID: "old", Title: "old"}}, nil
		}
		return []service.Task{{ID: "new", Title: "new"}}, nil
	})

	done := make(chan struct{})
	go func() {
		c.Fetch(context.Background())
		close(done)
	}()
	<-firstStarted

	got, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(releaseFirst)
	<-done

	if !reflect.DeepEqual(ids(got), []string{"new"}) {
		t.Errorf("expected newer fetch result, got %v", ids(got))
	}
	if !reflect.DeepEqual(ids(c.Read()), []string{"new"}) {
		t.Errorf("superseded fetch overwrote the cache: %v", ids(c.Read()))
	}
}

func TestGC_CollectsUntouchedCollection(t *testing.T) {
	calls := 0
	c, fc := newTestCache(staticFetcher(sampleTasks(), &calls))

	c.Fetch(context.Background())
	fc.Advance(DefaultGCTime - time.Second)
	if !c.State().Present {
		t.Fatal("collected too early")
	}

	fc.Advance(time.Second)
	if c.State().Present {
		t.Fatal("expected collection to be dropped after gc time")
	}
	if len(c.Read()) != 0 {
		t.Error("expected empty read after collection")
	}

	c.Fetch(context.Background())
	if calls != 2 {
		t.Errorf("expected refetch after collection, got %d calls", calls)
	}
}

func TestGC_TouchResetsTimer(t *testing.T) {
	calls := 0
	c, fc := newTestCache(staticFetcher(sampleTasks(), &calls))

	c.Fetch(context.Background())
	fc.Advance(DefaultGCTime - time.Second)
	c.Read()
	fc.Advance(DefaultGCTime - time.Second)

	if !c.State().Present {
		t.Error("read should have kept the collection alive")
	}
}

func ids(tasks []service.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
