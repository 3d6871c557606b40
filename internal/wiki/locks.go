package wiki

import "sync"

// repoLocks hands out one RWMutex per repository id. Writers on the same
// repository serialize against each other and against readers; unrelated
// repositories never contend.
type repoLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newRepoLocks() *repoLocks {
	return &repoLocks{locks: make(map[string]*sync.RWMutex)}
}

func (l *repoLocks) get(id string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.RWMutex{}
		l.locks[id] = lock
	}
	return lock
}
