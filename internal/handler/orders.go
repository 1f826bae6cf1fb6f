package handler

import (
	"net/http"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/model"
)

type placeOrderRequest struct {
	ServiceID int64 `json:"serviceId"`
}

// PlaceOrder оформляет заказ одной услуги.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), user, req.ServiceID)
	if err != nil {
		h.fail(w, r, err, "Service")
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(*order))
}

type checkoutRequest struct {
	ServiceIDs []int64 `json:"serviceIds"`
}

// Checkout оформляет корзину.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.Checkout(r.Context(), user, req.ServiceIDs)
	if err != nil {
		h.fail(w, r, err, "Service")
		return
	}

	h.logger.Info("checkout completed",
		zap.Int64("userID", user.ID),
		zap.Int("orders", len(res.Orders)),
		zap.String("total", res.Total.String()),
	)

	writeJSON(w, http.StatusOK, checkoutResponse{
		Msg:        "Order placed successfully",
		Orders:     lo.Map(res.Orders, func(o model.Order, _ int) orderResponse { return newOrderResponse(o) }),
		Total:      res.Total,
		NewBalance: res.NewBalance,
		Dropped:    lo.Ternary(res.Dropped == nil, []int64{}, res.Dropped),
	})
}

func writeOrderViews(w http.ResponseWriter, views []model.OrderView) {
	writeJSON(w, http.StatusOK, lo.Map(views, func(v model.OrderView, _ int) orderViewResponse {
		return newOrderViewResponse(v)
	}))
}

// MyOrders возвращает заказы текущего пользователя.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	views, err := h.service.ListMyOrders(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err, "Order")
		return
	}

	writeOrderViews(w, views)
}

// ListOrders возвращает все заказы.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.fail(w, r, err, "Order")
		return
	}

	writeOrderViews(w, views)
}

type orderStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus меняет статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, err, "Order")
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(*order))
}

// DeleteOrder удаляет заказ.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.fail(w, r, err, "Order")
		return
	}

	writeMessage(w, http.StatusOK, "Order deleted successfully")
}
