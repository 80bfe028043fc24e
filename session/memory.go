package session

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const memoryShardCount = 64

type memoryShard struct {
	mu    sync.Mutex
	users map[string][]Session
}

// MemoryStore is a process-local [Store].
//
// Users are spread over a fixed set of shards by xxhash of the user ID. Each
// shard has its own mutex, so calls for one user serialize while unrelated
// users rarely contend. Sessions of a user are kept in insertion order, oldest
// first.
type MemoryStore struct {
	cfg    Config
	shards [memoryShardCount]memoryShard
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore(cfg Config) *MemoryStore {
	s := &MemoryStore{cfg: cfg.withDefaults()}
	for i := range s.shards {
		s.shards[i].users = make(map[string][]Session)
	}
	return s
}

func (s *MemoryStore) shard(userID string) *memoryShard {
	return &s.shards[xxhash.Sum64String(userID)%memoryShardCount]
}

// Store implements [Store].
func (s *MemoryStore) Store(_ context.Context, userID, token string, meta Metadata) error {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s.insertLocked(sh, userID, token, meta)
	return nil
}

// Validate implements [Store].
func (s *MemoryStore) Validate(_ context.Context, userID, token string) (bool, error) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return indexOf(s.cleanupLocked(sh, userID), token) >= 0, nil
}

// Revoke implements [Store].
func (s *MemoryStore) Revoke(_ context.Context, userID, token string) (bool, error) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return s.removeLocked(sh, userID, token), nil
}

// RevokeAllForUser implements [Store].
func (s *MemoryStore) RevokeAllForUser(_ context.Context, userID string) (int, error) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	n := len(sh.users[userID])
	delete(sh.users, userID)
	return n, nil
}

// ActiveCount implements [Store].
func (s *MemoryStore) ActiveCount(_ context.Context, userID string) (int, error) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return len(s.cleanupLocked(sh, userID)), nil
}

// Rotate implements [Store].
func (s *MemoryStore) Rotate(_ context.Context, userID, oldToken, newToken string, meta Metadata) (bool, error) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if indexOf(s.cleanupLocked(sh, userID), oldToken) < 0 {
		return false, nil
	}
	s.removeLocked(sh, userID, oldToken)
	s.insertLocked(sh, userID, newToken, meta)
	return true, nil
}

// cleanupLocked drops expired sessions and returns what is left. A user whose
// list becomes empty is removed from the map.
func (s *MemoryStore) cleanupLocked(sh *memoryShard, userID string) []Session {
	list, ok := sh.users[userID]
	if !ok {
		return nil
	}

	now := s.cfg.Now()
	kept := list[:0]
	for _, sess := range list {
		if sess.live(now) {
			kept = append(kept, sess)
		}
	}
	clear(list[len(kept):])

	if len(kept) == 0 {
		delete(sh.users, userID)
		return nil
	}
	sh.users[userID] = kept
	return kept
}

func (s *MemoryStore) insertLocked(sh *memoryShard, userID, token string, meta Metadata) {
	list := s.cleanupLocked(sh, userID)
	if len(list) >= s.cfg.MaxSessionsPerUser {
		list = append(list[:0], list[1:]...)
	}
	if i := indexOf(list, token); i >= 0 {
		list = append(list[:i], list[i+1:]...)
	}

	now := s.cfg.Now()
	sh.users[userID] = append(list, Session{
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Lifetime),
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	})
}

func (s *MemoryStore) removeLocked(sh *memoryShard, userID, token string) bool {
	list := sh.users[userID]
	i := indexOf(list, token)
	if i < 0 {
		return false
	}

	list = append(list[:i], list[i+1:]...)
	if len(list) == 0 {
		delete(sh.users, userID)
		return true
	}
	sh.users[userID] = list
	return true
}

func indexOf(list []Session, token string) int {
	for i := range list {
		if list[i].Token == token {
			return i
		}
	}
	return -1
}
