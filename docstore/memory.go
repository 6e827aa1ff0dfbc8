package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type memCollection struct {
	order []string
	docs  map[string]json.RawMessage
}

// Memory is an in-process Store. Subscribers are called after each write, outside the
// lock, so a callback may read or write the store. Concurrent writers may coalesce
// deliveries, but the last snapshot a subscriber sees is always the newest.
type Memory struct {
	mu    sync.Mutex
	cols  map[string]*memCollection
	subs  subscribers
	newID func() string
}

func NewMemory() *Memory {
	return &Memory{
		cols:  make(map[string]*memCollection),
		subs:  newSubscribers(),
		newID: uuid.NewString,
	}
}

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.cols[name]
	if !ok {
		c = &memCollection{docs: make(map[string]json.RawMessage)}
		m.cols[name] = c
	}
	return c
}

// snapshotLocked copies the collection in insertion order. Callers hold m.mu.
func (m *Memory) snapshotLocked(name string) []Document {
	c, ok := m.cols[name]
	if !ok {
		return []Document{}
	}
	out := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, Document{ID: id, Data: append(json.RawMessage(nil), c.docs[id]...)})
	}
	return out
}

// notify must be called without m.mu held.
func (m *Memory) notify(name string) {
	m.mu.Lock()
	docs := m.snapshotLocked(name)
	version := m.subs.version(name)
	subs := m.subs.list(name)
	m.mu.Unlock()
	for _, s := range subs {
		s.deliver(version, docs)
	}
}

func (m *Memory) Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := newSubscriber(onSnapshot, onError)
	m.mu.Lock()
	id := m.subs.add(collection, sub)
	docs := m.snapshotLocked(collection)
	version := m.subs.version(collection)
	m.mu.Unlock()

	sub.deliver(version, docs)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.cancel()
			m.mu.Lock()
			m.subs.remove(collection, id)
			m.mu.Unlock()
		})
	}, nil
}

// Subscribers returns the number of live subscriptions on collection.
func (m *Memory) Subscribers(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs.count(collection)
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cols[collection]
	if !ok {
		return Document{}, ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: append(json.RawMessage(nil), data...)}, nil
}

func (m *Memory) Add(ctx context.Context, collection string, data any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := encode(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	id := m.newID()
	c := m.collection(collection)
	c.order = append(c.order, id)
	c.docs[id] = body
	m.subs.bump(collection)
	m.mu.Unlock()
	m.notify(collection)
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encode(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	c := m.collection(collection)
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = body
	m.subs.bump(collection)
	m.mu.Unlock()
	m.notify(collection)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	c, ok := m.cols[collection]
	var data json.RawMessage
	if ok {
		data, ok = c.docs[id]
	}
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	for k, v := range patch {
		b, err := json.Marshal(v)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("marshal field %s: %w", k, err)
		}
		body[k] = b
	}
	merged, err := json.Marshal(body)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	c.docs[id] = merged
	m.subs.bump(collection)
	m.mu.Unlock()
	m.notify(collection)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	docs := m.snapshotLocked(collection)
	m.mu.Unlock()
	if len(filters) == 0 {
		return docs, nil
	}
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		var body map[string]json.RawMessage
		if err := json.Unmarshal(d.Data, &body); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, d.ID, err)
		}
		ok, err := matches(body, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}
