package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func TestPageNormalizeAndOffset(t *testing.T) {
	p := domain.Page{}.Normalize()
	if p.Number != 1 || p.Limit != domain.DefaultPageLimit {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if got := (domain.Page{Number: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := (domain.Page{Limit: 1000}).Normalize().Limit; got != domain.MaxPageLimit {
		t.Fatalf("expected limit capped at %d, got %d", domain.MaxPageLimit, got)
	}
}

func TestNewPagination(t *testing.T) {
	got := domain.NewPagination(domain.Page{Number: 2, Limit: 20}, 41)
	want := domain.Pagination{Current: 2, Pages: 3, Total: 41, Limit: 20}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if empty := domain.NewPagination(domain.Page{}, 0); empty.Pages != 0 {
		t.Fatalf("expected 0 pages, got %d", empty.Pages)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := domain.Paginate(items, domain.Page{Number: 2, Limit: 2}); len(got) != 2 || got[0] != 3 {
		t.Fatalf("unexpected page: %v", got)
	}
	if got := domain.Paginate(items, domain.Page{Number: 4, Limit: 2}); len(got) != 0 {
		t.Fatalf("expected empty page, got %v", got)
	}
}
