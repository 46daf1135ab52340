package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

type memoryStore[T any] struct {
	mu          sync.Mutex
	items       map[string]*memoryEntry[T]
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-process store. Entries expire after the idle TTL.
func NewMemory[T any](cfg Config) Store[T] {
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore[T]{
		items:       make(map[string]*memoryEntry[T]),
		ttl:         ttlOrDefault(cfg.TTL),
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore[T]) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore[T]) cleanupExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, id)
		}
	}
}

func (s *memoryStore[T]) Create(_ context.Context, id string, value T) error {
	if id == "" {
		return fmt.Errorf("session id required")
	}
	s.mu.Lock()
	s.items[id] = &memoryEntry[T]{value: value, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// lookupLocked returns a live entry and drops an expired one.
func (s *memoryStore[T]) lookupLocked(id string) (*memoryEntry[T], bool) {
	entry, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.items, id)
		return nil, false
	}
	return entry, true
}

func (s *memoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookupLocked(id)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return entry.value, nil
}

func (s *memoryStore[T]) Update(_ context.Context, id string, fn func(*T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	entry, ok := s.lookupLocked(id)
	if !ok {
		return zero, ErrNotFound
	}

	next := entry.value
	if err := fn(&next); err != nil {
		return zero, err
	}
	entry.value = next
	entry.expiresAt = time.Now().Add(s.ttl)
	return next, nil
}

func (s *memoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore[T]) Stats(_ context.Context) (map[string]any, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, entry := range s.items {
		if !now.After(entry.expiresAt) {
			active++
		}
	}
	return map[string]any{
		"type":        DriverMemory,
		"total":       len(s.items),
		"active":      active,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore[T]) Close(context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
