package progress

import "sync"

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Registry serializes sessions per learner and lesson so that a stored record
// has a single writer at a time.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	opts  []Option
}

// NewRegistry returns a Registry whose sessions are opened with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{locks: map[string]*keyLock{}, opts: opts}
}

// With opens the learner's session for lesson over st, runs fn and releases the lock.
// Extra options are applied after the registry defaults.
func (r *Registry) With(learner, lesson string, st Storage, fn func(*Session), extra ...Option) {
	k := learner + "\x00" + lesson
	l := r.acquire(k)
	defer r.release(k, l)

	opts := make([]Option, 0, len(r.opts)+len(extra))
	opts = append(opts, r.opts...)
	opts = append(opts, extra...)
	fn(Open(lesson, st, opts...))
}

func (r *Registry) acquire(k string) *keyLock {
	r.mu.Lock()
	l, ok := r.locks[k]
	if !ok {
		l = &keyLock{}
		r.locks[k] = l
	}
	l.refs++
	r.mu.Unlock()
	l.mu.Lock()
	return l
}

func (r *Registry) release(k string, l *keyLock) {
	l.mu.Unlock()
	r.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, k)
	}
	r.mu.Unlock()
}
