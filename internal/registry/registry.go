// Package registry maps BLE addresses to peripheral handles. It is the
// authoritative input for connection attempts: the scan orchestrator
// fills it, the connection controller reads it, and teardown clears it.
package registry

import (
	"github.com/cornelk/hashmap"

	"github.com/Catchawink/blec/internal/adapter"
)

// Registry is a concurrent address → peripheral map. Keys are canonical
// address strings. Readers never observe partial updates.
type Registry struct {
	peripherals *hashmap.Map[string, adapter.Peripheral]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{peripherals: hashmap.New[string, adapter.Peripheral]()}
}

// Set inserts or replaces the peripheral stored under addr.
func (r *Registry) Set(addr string, p adapter.Peripheral) {
	r.peripherals.Set(adapter.NormalizeAddress(addr), p)
}

// Get returns the peripheral stored under addr.
func (r *Registry) Get(addr string) (adapter.Peripheral, bool) {
	return r.peripherals.Get(adapter.NormalizeAddress(addr))
}

// Len returns the number of known peripherals.
func (r *Registry) Len() int {
	return r.peripherals.Len()
}

// Range calls fn for every entry until fn returns false. Iteration
// order is unspecified.
func (r *Registry) Range(fn func(addr string, p adapter.Peripheral) bool) {
	r.peripherals.Range(fn)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	keys := make([]string, 0, r.peripherals.Len())
	r.peripherals.Range(func(addr string, _ adapter.Peripheral) bool {
		keys = append(keys, addr)
		return true
	})
	for _, k := range keys {
		r.peripherals.Del(k)
	}
}
