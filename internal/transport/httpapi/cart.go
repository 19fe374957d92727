package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cart.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toCartDTO(c))
}

func (h *handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	c, err := h.svc.Cart.Add(r.Context(), currentUser(r).ID, req.ProductID, quantity)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "", toCartDTO(c))
}

func (h *handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	c, err := h.svc.Cart.UpdateQuantity(r.Context(), currentUser(r).ID, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toCartDTO(c))
}

func (h *handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cart.Remove(r.Context(), currentUser(r).ID, chi.URLParam(r, "productId"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toCartDTO(c))
}

func (h *handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cart.Clear(r.Context(), currentUser(r).ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toCartDTO(c))
}
