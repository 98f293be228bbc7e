package locker

import "sync"

// KeyLocker is an in-process non-blocking lock by key
type KeyLocker struct {
	m    sync.Mutex
	keys map[string]bool
}

// New creates KeyLocker
func New() *KeyLocker {
	return &KeyLocker{keys: map[string]bool{}}
}

// TryLock locks key if it is free, reports if the lock was acquired
func (l *KeyLocker) TryLock(key string) bool {
	l.m.Lock()
	defer l.m.Unlock()
	if l.keys[key] {
		return false
	}
	l.keys[key] = true
	return true
}

// Unlock frees the key
func (l *KeyLocker) Unlock(key string) {
	l.m.Lock()
	defer l.m.Unlock()
	delete(l.keys, key)
}

// Locked reports if key is held
func (l *KeyLocker) Locked(key string) bool {
	l.m.Lock()
	defer l.m.Unlock()
	return l.keys[key]
}
