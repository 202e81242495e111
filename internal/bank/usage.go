package bank

import "sort"

// Usage accumulates the bank keys consulted during one run, so unused
// entries can be identified and optionally purged afterwards
type Usage struct {
	used map[string]bool
}

// NewUsage creates an empty usage accumulator
func NewUsage() *Usage {
	return &Usage{used: make(map[string]bool)}
}

// Mark records that a key was used to resolve a conflict
func (u *Usage) Mark(key string) {
	u.used[key] = true
}

// Used reports whether a key was used this run
func (u *Usage) Used(key string) bool {
	return u.used[key]
}

// Keys returns the used keys, sorted
func (u *Usage) Keys() []string {
	keys := make([]string, 0, len(u.used))
	for key := range u.used {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Set returns the used keys as a set
func (u *Usage) Set() map[string]bool {
	set := make(map[string]bool, len(u.used))
	for key := range u.used {
		set[key] = true
	}
	return set
}

// Restore marks all of the given keys as used. Used when resuming a run
// from serialized state.
func (u *Usage) Restore(keys []string) {
	for _, key := range keys {
		u.used[key] = true
	}
}
