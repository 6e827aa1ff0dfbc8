package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"campus-eats/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestReduce_OverlayReplacement(t *testing.T) {
	s := Initial(500)
	s = Reduce(s, OpenOverlay{Title: "A", Body: "first", Footer: [][]Button{Row(ActionButton("x", "x"))}, FooterStyle: FooterStacked})
	s = Reduce(s, OpenOverlay{Title: "B", Body: "second"})

	assert.Equal(t, Overlay{Open: true, Title: "B", Body: "second", FooterStyle: FooterDefault}, s.Overlay)

	s = Reduce(s, CloseOverlay{})
	assert.Equal(t, ClosedOverlay(), s.Overlay)
	assert.False(t, s.Overlay.Open)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := Initial(500)
	after := Reduce(before, SetCart{Items: []models.CartItem{{Item: "Dosa", Price: 50}}})
	after = Reduce(after, ToggleTheme{})
	assert.Empty(t, before.Cart)
	assert.True(t, before.LightMode)
	assert.Len(t, after.Cart, 1)
	assert.False(t, after.LightMode)
}

func TestReduce_NilListsBecomeEmpty(t *testing.T) {
	s := Reduce(Initial(0), SetRestaurants{})
	assert.NotNil(t, s.Restaurants)
	assert.Empty(t, s.Restaurants)
	s = Reduce(s, SetCart{})
	assert.NotNil(t, s.Cart)
}

func TestReduce_ClearMessage(t *testing.T) {
	s := Initial(0)
	// clearing when there is no toast is a no-op
	s = Reduce(s, ClearMessage{Seq: 1})
	assert.Nil(t, s.Toast)

	s = Reduce(s, SetMessage{Toast: Toast{Text: "hi", Severity: SeverityInfo, Seq: 2}})
	s = Reduce(s, ClearMessage{Seq: 1})
	require.NotNil(t, s.Toast)
	assert.Equal(t, "hi", s.Toast.Text)

	s = Reduce(s, ClearMessage{Seq: 2})
	assert.Nil(t, s.Toast)
}

func TestReduce_Session(t *testing.T) {
	s := Initial(0)
	s = Reduce(s, SetAuthReady{Ready: true})
	assert.True(t, s.Session.Ready)
	assert.False(t, s.Session.LoggedIn())

	s = Reduce(s, SetSession{Session: Session{UserKey: "k", Role: models.RoleHosteller, Ready: true}})
	assert.True(t, s.Session.LoggedIn())
	assert.Equal(t, "k", s.Session.UserKey)
}

func TestStore_ToastExpires(t *testing.T) {
	st := NewStore(Initial(500), time.Second)
	defer st.Close()

	st.ShowMessage("Added Dosa to cart!", SeverityInfo, 30*time.Millisecond)
	toast := st.State().Toast
	require.NotNil(t, toast)
	assert.Equal(t, "Added Dosa to cart!", toast.Text)
	assert.Equal(t, SeverityInfo, toast.Severity)

	require.Eventually(t, func() bool { return st.State().Toast == nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, st.PendingTimers())
}

func TestStore_NewerToastSurvivesOlderTimer(t *testing.T) {
	st := NewStore(Initial(500), time.Second)
	defer st.Close()

	st.ShowMessage("first", SeveritySuccess, 20*time.Millisecond)
	st.ShowMessage("second", SeverityError, 300*time.Millisecond)

	// the first timer fires and must leave the second message alone
	time.Sleep(80 * time.Millisecond)
	toast := st.State().Toast
	require.NotNil(t, toast)
	assert.Equal(t, "second", toast.Text)

	require.Eventually(t, func() bool { return st.State().Toast == nil }, 2*time.Second, 10*time.Millisecond)
}

func TestStore_ConcurrentToastsKeepNewest(t *testing.T) {
	st := NewStore(Initial(500), time.Hour)
	defer st.Close()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		highest uint64
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq := st.ShowMessage("toast", SeverityInfo, 0)
			mu.Lock()
			if seq > highest {
				highest = seq
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	toast := st.State().Toast
	require.NotNil(t, toast)
	assert.Equal(t, uint64(16), highest)
	assert.Equal(t, highest, toast.Seq)
}

func TestStore_CloseStopsTimers(t *testing.T) {
	st := NewStore(Initial(500), time.Hour)
	st.ShowMessage("pending", "", 0)
	assert.Equal(t, 1, st.PendingTimers())
	st.Close()
	assert.Equal(t, 0, st.PendingTimers())
	assert.Equal(t, uint64(0), st.ShowMessage("after close", "", 0))
}

func TestStore_ListenersSeePrevAndNext(t *testing.T) {
	st := NewStore(Initial(500), 0)
	defer st.Close()

	var (
		mu    sync.Mutex
		calls [][2]int64
	)
	unsub := st.Subscribe(func(prev, next State) {
		mu.Lock()
		calls = append(calls, [2]int64{prev.Wallet, next.Wallet})
		mu.Unlock()
	})
	st.Dispatch(SetWallet{Balance: 400})
	st.Dispatch(SetWallet{Balance: 300})
	unsub()
	st.Dispatch(SetWallet{Balance: 200})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][2]int64{{500, 400}, {400, 300}}, calls)
}

func TestStore_ListenerMayDispatch(t *testing.T) {
	st := NewStore(Initial(0), 0)
	defer st.Close()
	st.Subscribe(func(prev, next State) {
		if next.Overlay.Open && !prev.Overlay.Open {
			st.Dispatch(SetLoginPrompt{Open: false})
		}
	})
	st.Open("Cart", "empty", nil, "")
	s := st.State()
	assert.True(t, s.Overlay.Open)
	assert.False(t, s.LoginPrompt)
}

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r := NewRegistry(500, 0)
	defer r.Close()
	created := 0
	r.OnCreate = func(int64, *Store) { created++ }

	a := r.Get(1)
	b := r.Get(1)
	c := r.Get(2)
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, created)
	assert.EqualValues(t, 500, a.State().Wallet)
	assert.True(t, a.State().LoginPrompt)

	_, ok := r.Lookup(3)
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestTransact_CheckThenAct(t *testing.T) {
	s := NewStore(Initial(100), time.Minute)
	defer s.Close()

	debit := func(cur State) ([]Action, error) {
		if cur.Wallet < 60 {
			return nil, errors.New("insufficient")
		}
		return []Action{SetWallet{Balance: cur.Wallet - 60}}, nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Transact(debit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs++
			} else {
				oks++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, 7, errs)
	assert.EqualValues(t, 40, s.State().Wallet)
}

func TestTransact_ErrorAppliesNothing(t *testing.T) {
	s := NewStore(Initial(100), time.Minute)
	defer s.Close()
	calls := 0
	s.Subscribe(func(prev, next State) { calls++ })

	boom := errors.New("boom")
	got, err := s.Transact(func(cur State) ([]Action, error) {
		return []Action{SetWallet{Balance: 0}}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.EqualValues(t, 100, got.Wallet)
	assert.EqualValues(t, 100, s.State().Wallet)
	assert.Zero(t, calls)
}
