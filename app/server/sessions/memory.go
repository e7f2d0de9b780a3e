package sessions

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory 纯内存实现，用于测试
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (s *Memory) set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (s *Memory) get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (s *Memory) del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func refreshKey(userID uint) string { return "refresh:" + strconv.FormatUint(uint64(userID), 10) }
func resetKey(userID uint) string   { return "reset:" + strconv.FormatUint(uint64(userID), 10) }

func (s *Memory) PutRefreshToken(_ context.Context, userID uint, token string, ttl time.Duration) error {
	s.set(refreshKey(userID), token, ttl)
	return nil
}

func (s *Memory) GetRefreshToken(_ context.Context, userID uint) (string, error) {
	return s.get(refreshKey(userID))
}

func (s *Memory) DeleteRefreshToken(_ context.Context, userID uint) error {
	s.del(refreshKey(userID))
	return nil
}

func (s *Memory) PutResetToken(_ context.Context, userID uint, token string, ttl time.Duration) error {
	s.set(resetKey(userID), token, ttl)
	return nil
}

func (s *Memory) GetResetToken(_ context.Context, userID uint) (string, error) {
	return s.get(resetKey(userID))
}

func (s *Memory) DeleteResetToken(_ context.Context, userID uint) error {
	s.del(resetKey(userID))
	return nil
}

func (s *Memory) Acquire(_ context.Context, name string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := "lock:" + name
	if entry, ok := s.entries[key]; ok && time.Now().Before(entry.expiresAt) {
		return "", ErrLockNotHeld
	}
	owner := uuid.NewString()
	s.entries[key] = memoryEntry{value: owner, expiresAt: time.Now().Add(ttl)}
	return owner, nil
}

func (s *Memory) Ping(_ context.Context) error {
	return nil
}

func (s *Memory) Release(_ context.Context, name string, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := "lock:" + name
	entry, ok := s.entries[key]
	if !ok || entry.value != owner || time.Now().After(entry.expiresAt) {
		return ErrLockNotHeld
	}
	delete(s.entries, key)
	return nil
}
