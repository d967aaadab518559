package app

import (
	"context"
	"errors"
	"testing"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
)

type catalogStub struct {
	item *domain.CatalogItem
	err  error
}

func (s *catalogStub) GetCanonicalUnitPrice(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.item, nil
}

func TestVerify_ExactMatch(t *testing.T) {
	verifier := NewPriceVerifier(&catalogStub{item: &domain.CatalogItem{
		ItemID:         "santorini-day",
		ItemType:       domain.CatalogDayTour,
		UnitPriceCents: 10000,
		Currency:       "EUR",
	}})

	result, err := verifier.Verify(context.Background(), "santorini-day", 20000, domain.Travelers{Adults: 2}, false)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got reason %q", result.Reason)
	}
	if result.ExpectedCents != 20000 {
		t.Fatalf("expected 20000, got %d", result.ExpectedCents)
	}
}

func TestVerify_OneCentMismatchFails(t *testing.T) {
	verifier := NewPriceVerifier(&catalogStub{item: &domain.CatalogItem{
		ItemID:         "santorini-day",
		UnitPriceCents: 10000,
	}})

	result, err := verifier.Verify(context.Background(), "santorini-day", 19999, domain.Travelers{Adults: 2}, false)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected one-cent mismatch to be invalid")
	}
	if result.ExpectedCents != 20000 {
		t.Fatalf("expected canonical amount 20000, got %d", result.ExpectedCents)
	}
}

func TestVerify_SupplementOptInFromRequest(t *testing.T) {
	verifier := NewPriceVerifier(&catalogStub{item: &domain.CatalogItem{
		ItemID:         "crete-week",
		UnitPriceCents: 10000,
		Flags:          domain.PricingFlags{SupplementPercent: 20},
	}})

	result, err := verifier.Verify(context.Background(), "crete-week", 12000, domain.Travelers{Adults: 1}, true)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected 12000 to match with supplement opt-in, expected=%d", result.ExpectedCents)
	}
}

func TestVerify_UnknownItem(t *testing.T) {
	verifier := NewPriceVerifier(&catalogStub{err: store.ErrItemNotFound})

	result, err := verifier.Verify(context.Background(), "nope", 10000, domain.Travelers{Adults: 1}, false)
	if !errors.Is(err, store.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result for unknown item")
	}
}

func TestVerify_CatalogFailurePropagates(t *testing.T) {
	verifier := NewPriceVerifier(&catalogStub{err: errors.New("connection refused")})

	_, err := verifier.Verify(context.Background(), "santorini-day", 10000, domain.Travelers{Adults: 1}, false)
	if err == nil {
		t.Fatal("expected catalog failure to propagate")
	}
	if errors.Is(err, store.ErrItemNotFound) {
		t.Fatal("infrastructure failure must not be reported as a missing item")
	}
}
