package commands

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps command names and aliases to commands.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Command
	primary []Command // sorted by Name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register adds c under its name and aliases. No name may be taken twice.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{c.Name()}, c.Aliases()...)
	for _, n := range names {
		if prev, taken := r.byName[n]; taken {
			return fmt.Errorf("command name %q already used by %s", n, prev.Name())
		}
	}
	for _, n := range names {
		r.byName[n] = c
	}

	i := sort.Search(len(r.primary), func(i int) bool { return r.primary[i].Name() >= c.Name() })
	r.primary = append(r.primary, nil)
	copy(r.primary[i+1:], r.primary[i:])
	r.primary[i] = c
	return nil
}

// Find looks a command up by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// All returns each command once, sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Command(nil), r.primary...)
}

// DefaultRegistry holds the commands registered by this package's init
// functions.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry and panics on a name clash.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
