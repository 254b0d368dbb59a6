package service

import "sync"

type refLock struct {
	mu   sync.Mutex
	refs int
}

// keyLock serializes work per key while letting different keys proceed concurrently.
// Entries are released once no goroutine holds or waits for them.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*refLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyLock) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func conversationKey(id string) string { return "conversation:" + id }
func messageKey(id string) string      { return "message:" + id }
