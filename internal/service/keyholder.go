package service

import "sync"

// keyHolder keeps the verified master-derived key in memory. The key enters
// through Setup/Unlock and is swapped by a completed rotation; it is never
// persisted.
type keyHolder struct {
	mu  sync.RWMutex
	key []byte
}

func (h *keyHolder) get() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.key == nil {
		return nil, ErrVaultLocked
	}

	return h.key, nil
}

func (h *keyHolder) replace(key []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.key = key
}
