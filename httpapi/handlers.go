// Package httpapi serves the JSON backend used by the web console: restaurants, wallets,
// orders and mess bookings, keyed by the user's email.
package httpapi

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"campus-eats/docstore"
	"campus-eats/models"
	"campus-eats/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	docs          docstore.Store
	log           *zap.Logger
	defaultWallet int64

	now  func() time.Time
	seat func() int
}

func NewHandler(docs docstore.Store, defaultWallet int64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultWallet == 0 {
		defaultWallet = services.DefaultWalletBalance
	}
	return &Handler{
		docs:          docs,
		log:           log.Named("httpapi"),
		defaultWallet: defaultWallet,
		now:           time.Now,
		seat:          func() int { return rand.Intn(1000) + 1 },
	}
}

// Router returns the full /api tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Route("/api", h.RegisterRoutes)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/restaurants", h.ListRestaurants)
	r.Post("/restaurant", h.CreateRestaurant)
	r.Post("/restaurant/{id}/toggle", h.ToggleRestaurant)
	r.Post("/restaurant/{id}/menu", h.AddMenuItem)

	r.Get("/userdata/{email}", h.UserData)
	r.Post("/wallet/{email}", h.SetWallet)
	r.Post("/order/{email}", h.PlaceOrder)
	r.Get("/messbookings/{email}", h.MessBookings)
	r.Post("/messbooking/{email}", h.BookMeal)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// --- Request / Response types ---

type menuItemRequest struct {
	Item    models.Dish `json:"item"`
	Section string      `json:"section"`
}

type walletRequest struct {
	Balance *int64 `json:"balance"`
}

type orderRequest struct {
	Mode  models.PaymentMode `json:"mode"`
	Items []models.CartItem  `json:"items"`
}

type bookingRequest struct {
	Date  string   `json:"date"`
	Meals []string `json:"meals"`
	Menu  string   `json:"menu"`
}

type userDataResponse struct {
	Wallet int64          `json:"wallet"`
	Orders []models.Order `json:"orders"`
}

// --- Handlers ---

func (h *Handler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	list, err := services.ListRestaurants(r.Context(), h.docs)
	if err != nil {
		h.serverError(w, "list restaurants", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var in services.RestaurantInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	rest, err := services.NewRestaurant(in)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and type are required"})
		return
	}
	if err := services.CreateRestaurant(r.Context(), h.docs, rest); err != nil {
		h.serverError(w, "create restaurant", err)
		return
	}
	writeJSON(w, http.StatusCreated, rest)
}

func (h *Handler) ToggleRestaurant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	open, err := services.ToggleRestaurantOpen(r.Context(), h.docs, id)
	if errors.Is(err, services.ErrRestaurantNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
		return
	}
	if err != nil {
		h.serverError(w, "toggle restaurant", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "isOpen": open})
}

func (h *Handler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	err := services.AppendDish(r.Context(), h.docs, chi.URLParam(r, "id"), req.Section, req.Item)
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item needs a name, a positive price and a known section"})
	case errors.Is(err, services.ErrRestaurantNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
	case err != nil:
		h.serverError(w, "add menu item", err)
	default:
		writeJSON(w, http.StatusCreated, req.Item)
	}
}

func (h *Handler) UserData(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	wallet, err := h.wallet(r, email)
	if err != nil {
		h.serverError(w, "load wallet", err)
		return
	}
	docs, err := h.docs.Query(r.Context(), docstore.UserOrders(email))
	if err != nil {
		h.serverError(w, "load orders", err)
		return
	}
	orders, err := docstore.DecodeAll(docs, func(o *models.Order, id string) { o.ID = id })
	if err != nil {
		h.serverError(w, "decode orders", err)
		return
	}
	writeJSON(w, http.StatusOK, userDataResponse{Wallet: wallet, Orders: orders})
}

func (h *Handler) SetWallet(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Balance == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "balance is required"})
		return
	}
	if *req.Balance < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "balance cannot be negative"})
		return
	}
	if err := h.docs.Set(r.Context(), docstore.Wallets, email, models.Wallet{Balance: *req.Balance}); err != nil {
		h.serverError(w, "set wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, models.Wallet{Balance: *req.Balance})
}

// PlaceOrder stores the order under the user and copies it to the shared order list.
// The total is recomputed from the items.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	if !models.ValidPaymentMode(req.Mode) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown payment mode"})
		return
	}
	order := models.Order{
		When:  h.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Mode:  req.Mode,
		Total: models.CartTotal(req.Items),
		Items: req.Items,
	}
	id, err := h.docs.Add(r.Context(), docstore.UserOrders(email), order)
	if err != nil {
		h.serverError(w, "place order", err)
		return
	}
	shared := order
	shared.User = email
	if _, err := h.docs.Add(r.Context(), docstore.AllOrders, shared); err != nil {
		h.log.Warn("copy order to allOrders", zap.String("order", id), zap.Error(err))
	}
	order.ID = id
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) MessBookings(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	docs, err := h.docs.Query(r.Context(), docstore.UserMessHistory(email))
	if err != nil {
		h.serverError(w, "load bookings", err)
		return
	}
	bookings, err := docstore.DecodeAll(docs, func(b *models.MealBooking, id string) { b.ID = id })
	if err != nil {
		h.serverError(w, "decode bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handler) BookMeal(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	booking, err := services.PrepareBooking(services.BookingRequest(req), h.now(), h.seat())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": services.UserMessage(err)})
		return
	}
	id, err := h.docs.Add(r.Context(), docstore.UserMessHistory(email), booking)
	if err != nil {
		h.serverError(w, "save booking", err)
		return
	}
	booking.ID = id
	writeJSON(w, http.StatusCreated, booking)
}

// --- Helpers ---

func (h *Handler) wallet(r *http.Request, email string) (int64, error) {
	doc, err := h.docs.Get(r.Context(), docstore.Wallets, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return h.defaultWallet, nil
	}
	if err != nil {
		return 0, err
	}
	var wl models.Wallet
	if err := doc.Decode(&wl); err != nil {
		return 0, err
	}
	return wl.Balance, nil
}

func emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "email")))
	if email == "" || strings.Contains(email, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email"})
		return "", false
	}
	return email, true
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
