package hooks

import (
	"sort"
	"sync"
)

// Registry holds hook configs grouped by event, each group sorted by
// descending priority. Equal priorities keep insertion order.
type Registry struct {
	mu      sync.RWMutex
	byEvent map[Event][]*Config
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byEvent: map[Event][]*Config{}}
}

// Add inserts or replaces a hook.
func (r *Registry) Add(c *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(c.ID)
	list := append(r.byEvent[c.Event], c)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority > list[j].Priority })
	r.byEvent[c.Event] = list
}

// Remove deletes the hook with id and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) bool {
	for ev, list := range r.byEvent {
		for i, c := range list {
			if c.ID == id {
				r.byEvent[ev] = append(list[:i:i], list[i+1:]...)
				if len(r.byEvent[ev]) == 0 {
					delete(r.byEvent, ev)
				}
				return true
			}
		}
	}
	return false
}

// Get returns the hook with id.
func (r *Registry) Get(id string) (*Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, list := range r.byEvent {
		for _, c := range list {
			if c.ID == id {
				return c, true
			}
		}
	}
	return nil, false
}

// ForEvent returns the hooks for ev in dispatch order.
func (r *Registry) ForEvent(ev Event) []*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Config(nil), r.byEvent[ev]...)
}

// All returns every hook ordered by event, then dispatch order.
func (r *Registry) All() []*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Config
	for _, ev := range Events() {
		out = append(out, r.byEvent[ev]...)
	}
	return out
}

// EnabledEvents returns the events with at least one enabled hook.
func (r *Registry) EnabledEvents() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, ev := range Events() {
		for _, c := range r.byEvent[ev] {
			if c.Enabled {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}
