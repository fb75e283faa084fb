package cache

import (
	"sync"
	"time"
)

// localStore is the in-process fallback map. It is unbounded but swept:
// once it grows past the threshold, expired entries are purged on write.
type localStore struct {
	mu             sync.Mutex
	entries        map[string]entry
	sweepThreshold int
}

func newLocalStore(sweepThreshold int) *localStore {
	return &localStore{
		entries:        make(map[string]entry),
		sweepThreshold: sweepThreshold,
	}
}

func (l *localStore) get(key string, now time.Time) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		delete(l.entries, key)
		return nil, false
	}
	return e.Data, true
}

func (l *localStore) set(key string, data []byte, expiresAt, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.sweepThreshold {
		l.sweepLocked(now)
	}
	l.entries[key] = entry{Data: data, ExpiresAt: expiresAt.UnixMilli()}
}

func (l *localStore) delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *localStore) mget(keys []string, now time.Time) map[string][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string][]byte)
	for _, key := range keys {
		e, ok := l.entries[key]
		if !ok {
			continue
		}
		if e.expired(now) {
			delete(l.entries, key)
			continue
		}
		out[key] = e.Data
	}
	return out
}

func (l *localStore) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *localStore) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]entry)
}

func (l *localStore) sweepLocked(now time.Time) {
	for key, e := range l.entries {
		if e.expired(now) {
			delete(l.entries, key)
		}
	}
}
