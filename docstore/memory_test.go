package docstore

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credential struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	Roll string `json:"roll"`
	Role string `json:"role"`
}

func setCredID(c *credential, id string) { c.ID = id }

func TestMemory_AddQueryInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Add(ctx, Credentials, credential{Name: "Alice", Roll: "23CS001", Role: "hosteller"})
	require.NoError(t, err)
	_, err = m.Add(ctx, Credentials, credential{Name: "Bob", Roll: "23CS002", Role: "dayscholar"})
	require.NoError(t, err)
	_, err = m.Add(ctx, Credentials, credential{Name: "Alice", Roll: "23CS003", Role: "manager"})
	require.NoError(t, err)

	docs, err := m.Query(ctx, Credentials)
	require.NoError(t, err)
	all, err := DecodeAll(docs, setCredID)
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name + "/" + c.Roll
		assert.NotEmpty(t, c.ID)
	}
	assert.Equal(t, []string{"Alice/23CS001", "Bob/23CS002", "Alice/23CS003"}, names)

	docs, err = m.Query(ctx, Credentials, Eq("name", "Alice"), Eq("roll", "23CS003"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	var c credential
	require.NoError(t, docs[0].Decode(&c))
	assert.Equal(t, "manager", c.Role)

	docs, err = m.Query(ctx, Credentials, Eq("name", "Carol"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_QueryNumericFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "things", "a", map[string]any{"n": 1}))
	require.NoError(t, m.Set(ctx, "things", "b", map[string]any{"n": 2.0}))

	docs, err := m.Query(ctx, "things", Eq("n", 2))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)
}

func TestMemory_SetGetUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, Wallets, "u1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, m.Set(ctx, Wallets, "u1", map[string]any{"balance": 500}))
	require.NoError(t, m.Set(ctx, Wallets, "u1", map[string]any{"balance": 420}))

	doc, err := m.Get(ctx, Wallets, "u1")
	require.NoError(t, err)
	var w struct {
		Balance int64 `json:"balance"`
	}
	require.NoError(t, doc.Decode(&w))
	assert.EqualValues(t, 420, w.Balance)

	require.NoError(t, m.Set(ctx, Restaurants, "r1", map[string]any{"name": "Canteen", "isOpen": true}))
	require.NoError(t, m.Update(ctx, Restaurants, "r1", map[string]any{"isOpen": false}))
	doc, err = m.Get(ctx, Restaurants, "r1")
	require.NoError(t, err)
	var r map[string]any
	require.NoError(t, doc.Decode(&r))
	assert.Equal(t, map[string]any{"name": "Canteen", "isOpen": false}, r)

	err = m.Update(ctx, Restaurants, "missing", map[string]any{"isOpen": true})
	assert.ErrorIs(t, err, ErrNotFound)

	docs, err := m.Query(ctx, Wallets)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "set on an existing id replaces in place")
}

func TestMemory_RejectsNonObject(t *testing.T) {
	m := NewMemory()
	_, err := m.Add(context.Background(), "x", []int{1, 2})
	assert.Error(t, err)
	assert.Error(t, m.Set(context.Background(), "x", "id", "plain"))
}

func TestMemory_SubscribeDeliversFullSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, Restaurants, "a", map[string]any{"name": "A"}))

	var snaps [][]string
	unsub, err := m.Subscribe(ctx, Restaurants, func(docs []Document) {
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
		snaps = append(snaps, ids)
	}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, Restaurants, "b", map[string]any{"name": "B"}))
	require.NoError(t, m.Set(ctx, Employees, "e", map[string]any{"name": "E"}))
	require.NoError(t, m.Update(ctx, Restaurants, "a", map[string]any{"name": "A2"}))

	want := [][]string{{"a"}, {"a", "b"}, {"a", "b"}}
	if diff := cmp.Diff(want, snaps); diff != "" {
		t.Errorf("snapshots mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, m.Subscribers(Restaurants))
	unsub()
	unsub()
	assert.Equal(t, 0, m.Subscribers(Restaurants))

	require.NoError(t, m.Set(ctx, Restaurants, "c", map[string]any{"name": "C"}))
	assert.Len(t, snaps, 3)
}

func TestMemory_ConcurrentWritersEndOnNewestSnapshot(t *testing.T) {
	const writers = 8
	for round := 0; round < 50; round++ {
		ctx := context.Background()
		m := NewMemory()

		var (
			mu      sync.Mutex
			lastLen int
			calls   int
		)
		unsub, err := m.Subscribe(ctx, "c", func(docs []Document) {
			time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)
			mu.Lock()
			lastLen = len(docs)
			calls++
			mu.Unlock()
		}, nil)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := m.Add(ctx, "c", map[string]any{"n": 1})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		unsub()

		mu.Lock()
		got, n := lastLen, calls
		mu.Unlock()
		require.Equal(t, writers, got, "round %d: last snapshot after %d calls", round, n)
	}
}

func TestMemory_CallbackMayWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var lens []int
	unsub, err := m.Subscribe(ctx, "c", func(docs []Document) {
		lens = append(lens, len(docs))
		if len(docs) == 1 {
			_, err := m.Add(ctx, "c", map[string]any{"n": 2})
			assert.NoError(t, err)
		}
	}, nil)
	require.NoError(t, err)
	defer unsub()

	_, err = m.Add(ctx, "c", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, lens)
}

func TestMemory_NoDeliveryAfterUnsubscribe(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	calls := 0
	var unsub func()
	unsub, err := m.Subscribe(ctx, "c", func(docs []Document) {
		calls++
		if len(docs) == 1 {
			unsub()
			_, err := m.Add(ctx, "c", map[string]any{"n": 2})
			assert.NoError(t, err)
		}
	}, nil)
	require.NoError(t, err)

	_, err = m.Add(ctx, "c", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "the write made inside the callback is not delivered")
}

func TestMemory_SubscribeEmptyCollection(t *testing.T) {
	m := NewMemory()
	var got []Document
	called := false
	unsub, err := m.Subscribe(context.Background(), UserOrders("k"), func(docs []Document) {
		called = true
		got = docs
	}, nil)
	require.NoError(t, err)
	defer unsub()
	assert.True(t, called)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()
	_, err := m.Add(ctx, "x", map[string]any{"a": 1})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.Subscribe(ctx, "x", func([]Document) {}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectionPaths(t *testing.T) {
	assert.Equal(t, "users/abc/orders", UserOrders("abc"))
	assert.Equal(t, "users/abc/messHistory", UserMessHistory("abc"))
}
