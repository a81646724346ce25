package progress

import (
	"encoding/json"
	"log"
	"sync"
)

// Storage is the key-value medium a session persists to. An absent key reads as "".
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

func ProgressKey(lesson string) string { return "lesson-progress-state-" + lesson }
func XpKey(lesson string) string       { return "lesson-xp-" + lesson }
func QuizKey(lesson string) string     { return "lesson-quiz-" + lesson }

type MemoryStorage struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{m: map[string]string{}}
}

func (s *MemoryStorage) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

type prefixStorage struct {
	next   Storage
	prefix string
}

// WithPrefix namespaces every key of st, e.g. per learner.
func WithPrefix(st Storage, prefix string) Storage {
	return prefixStorage{next: st, prefix: prefix}
}

func (p prefixStorage) Get(key string) (string, error) { return p.next.Get(p.prefix + key) }
func (p prefixStorage) Set(key, value string) error    { return p.next.Set(p.prefix+key, value) }

// loadJSON decodes key into v. Read failures and malformed payloads are logged and
// reported as absent, leaving v untouched.
func loadJSON(st Storage, key string, v any) bool {
	raw, err := st.Get(key)
	if err != nil {
		log.Printf("warn: storage get %s failed: %v", key, err)
		return false
	}
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("warn: failed to parse stored state %s: %v", key, err)
		return false
	}
	return true
}

func saveJSON(st Storage, key string, v any) {
	buf, err := json.Marshal(v)
	if err != nil {
		log.Printf("warn: encode %s: %v", key, err)
		return
	}
	if err := st.Set(key, string(buf)); err != nil {
		log.Printf("warn: storage set %s failed: %v", key, err)
	}
}
