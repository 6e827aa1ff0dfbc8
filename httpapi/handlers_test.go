package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campus-eats/docstore"
	"campus-eats/models"
	"campus-eats/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *docstore.Memory) {
	t.Helper()
	docs := docstore.NewMemory()
	h := NewHandler(docs, 0, nil)
	h.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	h.seat = func() int { return 7 }
	return h, docs
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRestaurantLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := h.Router()

	rec := do(t, srv, http.MethodPost, "/api/restaurant", `{"name":"Night Canteen","type":"Snacks"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.Restaurant](t, rec)
	assert.Equal(t, "night-canteen", created.ID)
	assert.True(t, created.IsOpen)
	assert.Equal(t, "https://placehold.co/150x120/4ade80/fff?text=Night+Canteen", created.Img)

	rec = do(t, srv, http.MethodPost, "/api/restaurant/night-canteen/menu", `{"item":{"n":"Maggi","d":"Masala","p":40},"section":"main"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/restaurant/night-canteen/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["isOpen"])

	rec = do(t, srv, http.MethodGet, "/api/restaurants", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.Restaurant](t, rec)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsOpen)
	assert.Equal(t, []models.Dish{{Name: "Maggi", Description: "Masala", Price: 40}}, list[0].Menu[models.SectionMain])
}

func TestRestaurantErrors(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := h.Router()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"bad json", http.MethodPost, "/api/restaurant", `{`, http.StatusBadRequest},
		{"missing type", http.MethodPost, "/api/restaurant", `{"name":"X"}`, http.StatusBadRequest},
		{"toggle unknown", http.MethodPost, "/api/restaurant/nope/toggle", "", http.StatusNotFound},
		{"menu unknown restaurant", http.MethodPost, "/api/restaurant/nope/menu", `{"item":{"n":"A","p":1},"section":"main"}`, http.StatusNotFound},
		{"menu bad section", http.MethodPost, "/api/restaurant/nope/menu", `{"item":{"n":"A","p":1},"section":"dessert"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestUserDataDefaultsAndOrders(t *testing.T) {
	h, docs := newTestHandler(t)
	srv := h.Router()

	rec := do(t, srv, http.MethodGet, "/api/userdata/Alice@Campus.edu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[userDataResponse](t, rec)
	assert.EqualValues(t, services.DefaultWalletBalance, data.Wallet)
	assert.Empty(t, data.Orders)

	rec = do(t, srv, http.MethodPost, "/api/wallet/alice@campus.edu", `{"balance":320}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/order/alice@campus.edu",
		`{"mode":"Cash","items":[{"id":"r","rest":"R","item":"Dosa","price":50},{"id":"r","rest":"R","item":"Chai","price":15}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[models.Order](t, rec)
	assert.EqualValues(t, 65, order.Total)
	assert.Equal(t, "2026-03-10T09:00:00.000Z", order.When)

	rec = do(t, srv, http.MethodGet, "/api/userdata/alice@campus.edu", "")
	data = decode[userDataResponse](t, rec)
	assert.EqualValues(t, 320, data.Wallet)
	require.Len(t, data.Orders, 1)
	assert.Equal(t, order.ID, data.Orders[0].ID)

	all, err := docs.Query(context.Background(), docstore.AllOrders, docstore.Eq("user", "alice@campus.edu"))
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOrderAndWalletValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := h.Router()

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/order/a@b.c", `{"mode":"Cash","items":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/order/a@b.c", `{"mode":"Bitcoin","items":[{"price":1}]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/wallet/a@b.c", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/wallet/a@b.c", `{"balance":-5}`).Code)
}

func TestMessBooking(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := h.Router()

	rec := do(t, srv, http.MethodPost, "/api/messbooking/bob@campus.edu",
		`{"date":"2026-03-11","meals":["dinner","breakfast"],"menu":"Non-Veg Addition (+₹50)"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decode[models.MealBooking](t, rec)
	assert.Equal(t, []string{models.MealBreakfast, models.MealDinner}, booking.Meals)
	assert.EqualValues(t, 175, booking.Price)
	assert.Equal(t, 7, booking.Seat)

	rec = do(t, srv, http.MethodPost, "/api/messbooking/bob@campus.edu", `{"date":"2026-03-01","meals":["lunch"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Booking date cannot be in the past.", decode[map[string]string](t, rec)["error"])

	rec = do(t, srv, http.MethodGet, "/api/messbookings/bob@campus.edu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.MealBooking](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, booking.ID, list[0].ID)
}
