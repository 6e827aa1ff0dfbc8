package state

import (
	"sync"
	"time"
)

// Registry owns one Store per client. OnCreate runs once for each new store, outside
// the registry lock.
type Registry struct {
	mu            sync.Mutex
	stores        map[int64]*Store
	wallet        int64
	toastDuration time.Duration

	OnCreate func(clientID int64, s *Store)
}

func NewRegistry(defaultWallet int64, toastDuration time.Duration) *Registry {
	return &Registry{
		stores:        make(map[int64]*Store),
		wallet:        defaultWallet,
		toastDuration: toastDuration,
	}
}

// Get returns the client's store, creating it on first use.
func (r *Registry) Get(clientID int64) *Store {
	r.mu.Lock()
	if s, ok := r.stores[clientID]; ok {
		r.mu.Unlock()
		return s
	}
	s := NewStore(Initial(r.wallet), r.toastDuration)
	r.stores[clientID] = s
	onCreate := r.OnCreate
	r.mu.Unlock()

	if onCreate != nil {
		onCreate(clientID, s)
	}
	return s
}

// Lookup returns the client's store without creating one.
func (r *Registry) Lookup(clientID int64) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[clientID]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close closes every store.
func (r *Registry) Close() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[int64]*Store)
	r.mu.Unlock()
	for _, s := range stores {
		s.Close()
	}
}
