// The margaux C interface. Built with -buildmode=c-shared; every exported
// function follows the header contract in margaux.h.
package main

import (
	"sync"
)

// handleRegistry hands out opaque integer tokens for Go objects so no Go
// pointer ever crosses the C boundary.
type handleRegistry struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]interface{}
}

func newHandleRegistry() *handleRegistry {
	return &handleRegistry{next: 1, entries: make(map[uint64]interface{})}
}

func (r *handleRegistry) put(v interface{}) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.next
	r.next++
	r.entries[h] = v
	return h
}

func (r *handleRegistry) get(h uint64) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[h]
	return v, ok
}

func (r *handleRegistry) drop(h uint64) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[h]
	if ok {
		delete(r.entries, h)
	}
	return v, ok
}

var (
	databases    = newHandleRegistry()
	elements     = newHandleRegistry()
	timeSeries   = newHandleRegistry()
	results      = newHandleRegistry()
	stringArrays = newHandleRegistry()
)

func main() {}
