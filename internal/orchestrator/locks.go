package orchestrator

// #region imports
import "sync"

// #endregion

// #region keyed-mutex

// keyedMutex serializes turns per counterpart. Concurrent turns for
// different counterparts proceed independently; two turns for the same
// counterpart never interleave.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key, creating it on first use. Returns the
// unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// #endregion keyed-mutex
