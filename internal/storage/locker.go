package storage

import (
	"context"
	"sync"

	"brandsim/server/internal/models"
)

// MemoryGameLocker is the single-instance fallback when Redis is not configured
type MemoryGameLocker struct {
	mu     sync.Mutex
	locked map[string]struct{}
}

func NewMemoryGameLocker() *MemoryGameLocker {
	return &MemoryGameLocker{locked: make(map[string]struct{})}
}

func (l *MemoryGameLocker) LockGame(_ context.Context, gameID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.locked[gameID]; held {
		return nil, models.ErrGameBusy
	}
	l.locked[gameID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.locked, gameID)
			l.mu.Unlock()
		})
	}, nil
}
