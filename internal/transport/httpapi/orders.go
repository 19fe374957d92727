package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/orders"
)

type placeOrderRequest struct {
	DeliveryAddress addressDTO `json:"deliveryAddress"`
	PaymentMethod   string     `json:"paymentMethod"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (h *handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	placement, err := h.svc.Checkout.Place(r.Context(), currentUser(r).ID, checkout.PlaceOrderInput{
		Address:       req.DeliveryAddress.toDomain(),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Order placed successfully", toPlacementDTO(placement))
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, pagination, err := h.svc.Orders.List(r.Context(), currentUser(r), orders.ListQuery{
		BuyerID:  strings.TrimSpace(q.Get("buyerId")),
		SellerID: strings.TrimSpace(q.Get("sellerId")),
		Status:   q.Get("status"),
		Page:     pageFromQuery(r),
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writePage(w, toOrderDTOs(items), pagination)
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toOrderDTO(order))
}

func (h *handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	order, err := h.svc.Orders.UpdateStatus(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Order status updated", toOrderDTO(order))
}
