package service

import (
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
)

var ErrDuplicateMatch = errors.New("match id already registered")

// Registry maps match ids to sessions. Entries are spread over independently
// locked shards.
type Registry struct {
	shards []*shard
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry with n shards (at least one).
func NewRegistry(n int) *Registry {
	n = max(n, 1)
	r := &Registry{shards: make([]*shard, n)}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	return r.shards[xxhash.Sum64String(id)%uint64(len(r.shards))]
}

// Insert adds s under its match id.
func (r *Registry) Insert(s *Session) error {
	sh := r.shardFor(s.ID())
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[s.ID()]; ok {
		return ErrDuplicateMatch
	}
	sh.sessions[s.ID()] = s
	return nil
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Remove deletes id and waits for any command in flight on it to finish.
// Commands that looked the session up earlier fail with ErrMatchNotFound.
func (r *Registry) Remove(id string) bool {
	sh := r.shardFor(id)
	sh.mu.Lock()
	s, ok := sh.sessions[id]
	delete(sh.sessions, id)
	sh.mu.Unlock()
	if ok {
		s.close()
	}
	return ok
}

// Range calls fn for each session until fn returns false. It works on a
// snapshot of each shard, so fn may call back into the registry.
func (r *Registry) Range(fn func(s *Session) bool) {
	for _, sh := range r.shards {
		sh.mu.RLock()
		batch := make([]*Session, 0, len(sh.sessions))
		for _, s := range sh.sessions {
			batch = append(batch, s)
		}
		sh.mu.RUnlock()
		for _, s := range batch {
			if !fn(s) {
				return
			}
		}
	}
}

// Len returns the number of registered matches.
func (r *Registry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
