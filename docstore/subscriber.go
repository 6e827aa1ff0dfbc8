package docstore

import "sync"

// subscriber serialises deliveries for one subscription. Snapshots carry the version of
// their collection at read time; anything not newer than the last accepted version is
// dropped, so the final call always sees the latest state. A snapshot that arrives while
// another goroutine is delivering is handed to that goroutine, which keeps callbacks
// sequential and lets a callback write to the store without deadlocking.
type subscriber struct {
	onSnapshot SnapshotFunc
	onError    ErrorFunc

	mu       sync.Mutex
	seen     bool
	last     uint64
	pending  []Document
	queued   bool
	running  bool
	canceled bool
}

func newSubscriber(onSnapshot SnapshotFunc, onError ErrorFunc) *subscriber {
	return &subscriber{onSnapshot: onSnapshot, onError: onError}
}

func (s *subscriber) deliver(version uint64, docs []Document) {
	s.mu.Lock()
	if s.canceled || (s.seen && version <= s.last) {
		s.mu.Unlock()
		return
	}
	s.seen, s.last = true, version
	s.pending, s.queued = docs, true
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	for s.queued && !s.canceled {
		d := s.pending
		s.pending, s.queued = nil, false
		s.mu.Unlock()
		s.onSnapshot(d)
		s.mu.Lock()
	}
	s.running = false
	s.pending, s.queued = nil, false
	s.mu.Unlock()
}

func (s *subscriber) fail(err error) {
	s.mu.Lock()
	canceled := s.canceled
	s.mu.Unlock()
	if !canceled && s.onError != nil {
		s.onError(err)
	}
}

func (s *subscriber) cancel() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
}

// subscribers is a registry of subscriptions per collection with a version counter
// per collection. Callers hold their own store lock around every method.
type subscribers struct {
	next     uint64
	byCol    map[string]map[uint64]*subscriber
	versions map[string]uint64
}

func newSubscribers() subscribers {
	return subscribers{
		byCol:    make(map[string]map[uint64]*subscriber),
		versions: make(map[string]uint64),
	}
}

func (r *subscribers) add(collection string, s *subscriber) uint64 {
	r.next++
	if r.byCol[collection] == nil {
		r.byCol[collection] = make(map[uint64]*subscriber)
	}
	r.byCol[collection][r.next] = s
	return r.next
}

func (r *subscribers) remove(collection string, id uint64) {
	delete(r.byCol[collection], id)
	if len(r.byCol[collection]) == 0 {
		delete(r.byCol, collection)
	}
}

func (r *subscribers) list(collection string) []*subscriber {
	out := make([]*subscriber, 0, len(r.byCol[collection]))
	for _, s := range r.byCol[collection] {
		out = append(out, s)
	}
	return out
}

func (r *subscribers) count(collection string) int { return len(r.byCol[collection]) }

// bump advances the collection version and returns it.
func (r *subscribers) bump(collection string) uint64 {
	r.versions[collection]++
	return r.versions[collection]
}

func (r *subscribers) version(collection string) uint64 { return r.versions[collection] }
