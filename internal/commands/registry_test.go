package commands

import (
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, c := range []Command{&RmCmd{}, &AddCmd{}, &ListCmd{}} {
		if err := r.Register(c); err != nil {
			t.Fatalf("register %s: %v", c.Name(), err)
		}
	}

	var names []string
	for _, c := range r.All() {
		names = append(names, c.Name())
	}
	if got := strings.Join(names, ","); got != "add,list,rm" {
		t.Errorf("expected sorted names, got %q", got)
	}

	if c, ok := r.Find("create"); !ok || c.Name() != "add" {
		t.Error("expected alias create to find add")
	}
	if _, ok := r.Find("nope"); ok {
		t.Error("expected unknown name not found")
	}

	err := r.Register(&ShowCmd{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(&AddCmd{}); err == nil || !strings.Contains(err.Error(), `"add" already used by add`) {
		t.Errorf("expected clash error, got %v", err)
	}
	if len(r.All()) != 4 {
		t.Errorf("failed registration should not be kept, got %d commands", len(r.All()))
	}
}
