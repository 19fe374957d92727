package domain

const (
	DefaultPageLimit = 20
	// MaxPageLimit ограничивает размер страницы сверху.
	MaxPageLimit = 100
)

// Page — параметры постраничной выборки (страницы нумеруются с 1).
type Page struct {
	Number int
	Limit  int
}

// Normalize подставляет значения по умолчанию.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset возвращает количество пропускаемых записей.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Limit
}

// Pagination описывает результат постраничной выборки.
type Pagination struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
	Limit   int `json:"limit"`
}

// NewPagination считает количество страниц для total записей.
func NewPagination(page Page, total int) Pagination {
	page = page.Normalize()
	pages := 0
	if total > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return Pagination{
		Current: page.Number,
		Pages:   pages,
		Total:   total,
		Limit:   page.Limit,
	}
}

// Paginate вырезает страницу из уже отсортированного среза.
func Paginate[T any](items []T, page Page) []T {
	offset := page.Offset()
	limit := page.Normalize().Limit
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
