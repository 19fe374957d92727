package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/catalog"
)

type createCategoryRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Image          string `json:"image"`
	ParentCategory string `json:"parentCategory"`
	SortOrder      int    `json:"sortOrder"`
}

type createProductRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Price       priceInputDTO `json:"price"`
	Inventory   struct {
		Quantity int `json:"quantity"`
	} `json:"inventory"`
	Images []string `json:"images"`
	Tags   []string `json:"tags"`
	Status string   `json:"status"`
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Catalog.ListCategories(r.Context())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	out := make([]categoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryDTO(c))
	}
	writeData(w, http.StatusOK, "", out)
}

func (h *handler) getCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.svc.Catalog.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toCategoryDTO(category))
}

func (h *handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	category, err := h.svc.Catalog.CreateCategory(r.Context(), currentUser(r), catalog.NewCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		ParentID:    req.ParentCategory,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Category created successfully", toCategoryDTO(category))
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ProductFilter{
		CategoryID: strings.TrimSpace(q.Get("category")),
		SellerID:   strings.TrimSpace(q.Get("seller")),
		Status:     domain.ProductStatus(strings.ToLower(strings.TrimSpace(q.Get("status")))),
		Search:     q.Get("search"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		h.errs.write(w, r, domain.ErrProductStatus)
		return
	}

	items, pagination, err := h.svc.Catalog.ListProducts(r.Context(), filter, pageFromQuery(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writePage(w, toProductDTOs(items), pagination)
}

func (h *handler) listProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category, items, pagination, err := h.svc.Catalog.ListByCategory(r.Context(), chi.URLParam(r, "categoryId"), pageFromQuery(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Category categoryDTO `json:"category"`
	}{
		envelope: envelope{Success: true, Data: toProductDTOs(items), Pagination: &pagination},
		Category: toCategoryDTO(category),
	})
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toProductDTO(product))
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	product, err := h.svc.Catalog.CreateProduct(r.Context(), currentUser(r), catalog.NewProductInput{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.Category,
		Price:       req.Price.toDomain(),
		Quantity:    req.Inventory.Quantity,
		Images:      req.Images,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Product created successfully", toProductDTO(product))
}
