package commands

import (
	"context"
	"errors"
	"testing"

	"tarevity/internal/config"
	"tarevity/internal/service"
	"tarevity/internal/session"
	"tarevity/internal/testutil"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		args    []string
		want    TaskRef
		wantErr error
	}{
		{[]string{"5"}, TaskRef{Num: 5}, nil},
		{[]string{"012"}, TaskRef{Num: 12}, nil},
		{[]string{"srv-1"}, TaskRef{ID: "srv-1"}, nil},
		{[]string{"65f1c2a9e4b0a1b2c3d4e5f6", "extra"}, TaskRef{ID: "65f1c2a9e4b0a1b2c3d4e5f6"}, nil},
		{[]string{"١٢"}, TaskRef{ID: "١٢"}, nil}, // non-ASCII digits are an ID
		{nil, TaskRef{}, ErrTaskRefRequired},
		{[]string{""}, TaskRef{}, ErrTaskRefRequired},
	}

	for _, tt := range tests {
		got, err := ParseTaskRef(tt.args)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseTaskRef(%q): expected error %v, got %v", tt.args, tt.wantErr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTaskRef(%q): expected %+v, got %+v", tt.args, tt.want, got)
		}
	}
}

func TestParseTaskRef_Overflow(t *testing.T) {
	_, err := ParseTaskRef([]string{"99999999999999999999999"})
	if err == nil || err.Error() != "invalid task reference: 99999999999999999999999" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestResolveTask(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddTask(service.Task{ID: "t1", Title: "Buy milk"})
	store.AddTask(service.Task{ID: "t2", Title: "Buy eggs"})
	cfg, _ := config.New(t.TempDir())
	sess := session.New(cfg, session.Deps{Store: store})
	defer sess.Close()
	ctx := context.Background()

	task, found, err := ResolveTask(ctx, sess, TaskRef{Num: 2})
	if err != nil || !found || task.ID != "t2" {
		t.Errorf("expected t2, got %+v found=%v err=%v", task, found, err)
	}

	task, found, err = ResolveTask(ctx, sess, TaskRef{ID: "t1"})
	if err != nil || !found || task.Title != "Buy milk" {
		t.Errorf("expected t1, got %+v found=%v err=%v", task, found, err)
	}

	task, found, err = ResolveTask(ctx, sess, TaskRef{ID: "elsewhere"})
	if err != nil || found || task.ID != "elsewhere" {
		t.Errorf("expected a bare uncached task, got %+v found=%v err=%v", task, found, err)
	}

	_, _, err = ResolveTask(ctx, sess, TaskRef{Num: 3})
	if err == nil || err.Error() != "task number out of range: 3" {
		t.Errorf("unexpected error %v", err)
	}

	if store.Calls("list") != 1 {
		t.Errorf("expected the collection fetched once, got %d", store.Calls("list"))
	}
}
