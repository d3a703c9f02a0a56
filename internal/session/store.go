package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store хранит по одной живой сессии на интервью, ключ — id сессии
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore создает пустое хранилище сессий
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Params задает параметры новой сессии
type Params struct {
	Role       string
	Mode       Mode
	Difficulty string
	Topics     []string
	Duration   time.Duration
}

// Create создает и регистрирует новую сессию
func (st *Store) Create(p Params) *Session {
	topics := make([]string, len(p.Topics))
	copy(topics, p.Topics)

	now := time.Now()
	sess := &Session{
		ID:           uuid.New().String(),
		Role:         p.Role,
		Mode:         p.Mode,
		Difficulty:   p.Difficulty,
		Topics:       topics,
		StartedAt:    now,
		Duration:     p.Duration,
		LastActivity: now,
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[sess.ID] = sess
	return sess
}

// Get возвращает сессию по id
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Delete удаляет сессию из хранилища
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len возвращает количество живых сессий
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartCleanup запускает периодическую чистку неактивных сессий
func (st *Store) StartCleanup(interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			st.cleanupInactive(maxIdle)
		}
	}()
}

func (st *Store) cleanupInactive(maxIdle time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for id, sess := range st.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(st.sessions, id)
		}
	}
}
