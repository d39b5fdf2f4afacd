package services

import "sync"

// keyedMutex hands out one mutex per key. Used to serialize terminal
// transitions per execution ID and booking commits per equipment ID.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()

	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}

	k.mu.Unlock()

	lock.Lock()

	return lock.Unlock
}
