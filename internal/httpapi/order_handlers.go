package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"beybuilmek.com/internal/audit"
	"beybuilmek.com/internal/auth"
	"beybuilmek.com/internal/ids"
	"beybuilmek.com/internal/order"
)

type orderItemRequest struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

type createOrderRequest struct {
	Currency string             `json:"currency"`
	Items    []orderItemRequest `json:"items"`
}

func (a *API) handleOrdersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createOrder(w, r)
	case http.MethodGet:
		a.listOrders(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	o := &order.Order{
		ID:        ids.New(),
		UserID:    userID,
		Currency:  strings.ToUpper(strings.TrimSpace(req.Currency)),
		Status:    order.StatusPendingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, it := range req.Items {
		o.Items = append(o.Items, order.Item{
			ID:         ids.New(),
			Name:       strings.TrimSpace(it.Name),
			UnitAmount: it.UnitAmount,
			Quantity:   it.Quantity,
		})
	}

	if err := a.orders.Create(r.Context(), o); err != nil {
		switch {
		case errors.Is(err, order.ErrNoItems),
			errors.Is(err, order.ErrInvalidAmount),
			errors.Is(err, order.ErrInvalidCurrency):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "order could not be created")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "order.created", map[string]any{
		"order_id": o.ID,
		"amount":   o.Total(),
		"currency": o.Currency,
	})
	writeJSON(w, http.StatusCreated, o)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	list, err := a.orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "orders could not be listed")
		return
	}
	if list == nil {
		list = []*order.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (a *API) handleOrderResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/orders/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "order not found")
		return
	}

	o, err := a.orders.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "order lookup failed")
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	if o.UserID != userID {
		writeError(w, r, http.StatusForbidden, "order belongs to another account")
		return
	}
	writeJSON(w, http.StatusOK, o)
}
