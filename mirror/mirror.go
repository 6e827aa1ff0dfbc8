// Package mirror keeps a client's state in step with the document store: one live
// subscription per collection, each push replacing the local list.
package mirror

import (
	"context"
	"sync"

	"campus-eats/docstore"
	"campus-eats/models"
	"campus-eats/state"

	"go.uber.org/zap"
)

type Mirror struct {
	ctx  context.Context
	docs docstore.Store
	st   *state.Store
	log  *zap.Logger

	mu     sync.Mutex
	key    string
	ready  bool
	gen    uint64
	unsubs []func()

	stopListening func()
}

// Start attaches a mirror to st. Subscriptions follow the session's user key and
// readiness until Stop.
func Start(ctx context.Context, docs docstore.Store, st *state.Store, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Mirror{ctx: ctx, docs: docs, st: st, log: log.Named("mirror")}
	m.stopListening = st.Subscribe(func(prev, next state.State) {
		if prev.Session.UserKey == next.Session.UserKey && prev.Session.Ready == next.Session.Ready {
			return
		}
		m.sync(next.Session)
	})
	m.sync(st.State().Session)
	return m
}

// Stop removes every subscription.
func (m *Mirror) Stop() {
	m.stopListening()
	m.mu.Lock()
	old := m.unsubs
	m.unsubs = nil
	m.key, m.ready = "", false
	m.gen++
	m.mu.Unlock()
	for _, u := range old {
		u()
	}
}

// Active returns the number of live store subscriptions.
func (m *Mirror) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.unsubs)
}

func (m *Mirror) sync(sess state.Session) {
	m.mu.Lock()
	if sess.UserKey == m.key && sess.Ready == m.ready {
		m.mu.Unlock()
		return
	}
	old := m.unsubs
	m.unsubs = nil
	m.key, m.ready = sess.UserKey, sess.Ready
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	for _, u := range old {
		u()
	}
	if !sess.Ready || sess.UserKey == "" {
		return
	}

	unsubs := m.subscribeAll(sess.UserKey, gen)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		for _, u := range unsubs {
			u()
		}
		return
	}
	m.unsubs = unsubs
	m.mu.Unlock()
}

// current reports whether gen is still the live subscription generation.
func (m *Mirror) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

func (m *Mirror) subscribeAll(key string, gen uint64) []func() {
	subs := []struct {
		collection string
		apply      func(docs []docstore.Document) error
	}{
		{docstore.Restaurants, func(docs []docstore.Document) error {
			v, err := docstore.DecodeAll(docs, func(r *models.Restaurant, id string) { r.ID = id })
			if err == nil {
				m.st.Dispatch(state.SetRestaurants{Restaurants: v})
			}
			return err
		}},
		{docstore.UserOrders(key), func(docs []docstore.Document) error {
			v, err := docstore.DecodeAll(docs, func(o *models.Order, id string) { o.ID = id })
			if err == nil {
				m.st.Dispatch(state.SetOrders{Orders: v})
			}
			return err
		}},
		{docstore.UserMessHistory(key), func(docs []docstore.Document) error {
			v, err := docstore.DecodeAll(docs, func(b *models.MealBooking, id string) { b.ID = id })
			if err == nil {
				m.st.Dispatch(state.SetMessHistory{Bookings: v})
			}
			return err
		}},
		{docstore.Employees, func(docs []docstore.Document) error {
			v, err := docstore.DecodeAll(docs, func(e *models.Employee, id string) { e.ID = id })
			if err == nil {
				m.st.Dispatch(state.SetEmployees{Employees: v})
			}
			return err
		}},
		{docstore.AllOrders, func(docs []docstore.Document) error {
			v, err := docstore.DecodeAll(docs, func(o *models.Order, id string) { o.ID = id })
			if err == nil {
				m.st.Dispatch(state.SetAllOrders{Orders: v})
			}
			return err
		}},
	}

	unsubs := make([]func(), 0, len(subs))
	for _, s := range subs {
		s := s
		log := m.log.With(zap.String("collection", s.collection))
		unsub, err := m.docs.Subscribe(m.ctx, s.collection,
			func(docs []docstore.Document) {
				// A push from a torn-down key must not overwrite the new key's lists.
				if !m.current(gen) {
					return
				}
				if err := s.apply(docs); err != nil {
					log.Error("decode snapshot", zap.Error(err))
				}
			},
			func(err error) {
				log.Error("subscription failed", zap.Error(err))
			},
		)
		if err != nil {
			log.Error("subscribe", zap.Error(err))
			continue
		}
		unsubs = append(unsubs, unsub)
	}
	return unsubs
}
