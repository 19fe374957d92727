package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/marketplace/internal/service/reviews"
)

type createReviewRequest struct {
	Product string `json:"product"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *handler) listReviews(w http.ResponseWriter, r *http.Request) {
	items, pagination, err := h.svc.Reviews.ListByProduct(r.Context(), chi.URLParam(r, "productId"), pageFromQuery(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	out := make([]reviewDTO, 0, len(items))
	for _, review := range items {
		out = append(out, toReviewDTO(review))
	}
	writePage(w, out, pagination)
}

func (h *handler) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	review, err := h.svc.Reviews.Create(r.Context(), currentUser(r), reviews.CreateInput{
		ProductID: req.Product,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Review created successfully", toReviewDTO(review))
}
