package app

import (
	"testing"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
)

func TestComputeBreakdown_AdultsOnly(t *testing.T) {
	b := ComputeBreakdown(10000, domain.Travelers{Adults: 2}, domain.PricingFlags{})

	if b.Subtotal != 20000 {
		t.Fatalf("expected subtotal 20000, got %d", b.Subtotal)
	}
	if b.Total != 20000 {
		t.Fatalf("expected total 20000, got %d", b.Total)
	}
	if b.SingleSupplementAmount != 0 || b.GroupDiscountAmount != 0 {
		t.Fatalf("expected no adjustments, got supplement=%d discount=%d", b.SingleSupplementAmount, b.GroupDiscountAmount)
	}
}

func TestComputeBreakdown_SingleSupplement(t *testing.T) {
	b := ComputeBreakdown(10000, domain.Travelers{Adults: 1}, domain.PricingFlags{
		SingleSupplement:  true,
		SupplementPercent: 20,
	})

	if b.Subtotal != 10000 {
		t.Fatalf("expected subtotal 10000, got %d", b.Subtotal)
	}
	if b.SingleSupplementAmount != 2000 {
		t.Fatalf("expected supplement 2000, got %d", b.SingleSupplementAmount)
	}
	if b.Total != 12000 {
		t.Fatalf("expected total 12000, got %d", b.Total)
	}
}

func TestComputeBreakdown_SupplementSuppressedForParties(t *testing.T) {
	flags := domain.PricingFlags{SingleSupplement: true, SupplementPercent: 20}

	twoAdults := ComputeBreakdown(10000, domain.Travelers{Adults: 2}, flags)
	if twoAdults.SingleSupplementAmount != 0 {
		t.Fatalf("expected no supplement for 2 adults, got %d", twoAdults.SingleSupplementAmount)
	}

	withChild := ComputeBreakdown(10000, domain.Travelers{Adults: 1, Children: 1}, flags)
	if withChild.SingleSupplementAmount != 0 {
		t.Fatalf("expected no supplement with a child present, got %d", withChild.SingleSupplementAmount)
	}
}

func TestComputeBreakdown_ChildDiscountAndGroupDiscount(t *testing.T) {
	b := ComputeBreakdown(10000, domain.Travelers{Adults: 4, Children: 3}, domain.PricingFlags{
		ChildDiscountPercent: 50,
		GroupThreshold:       6,
		GroupDiscountPercent: 10,
	})

	if b.ChildUnitPrice != 5000 {
		t.Fatalf("expected child unit price 5000, got %d", b.ChildUnitPrice)
	}
	if b.Subtotal != 55000 {
		t.Fatalf("expected subtotal 55000, got %d", b.Subtotal)
	}
	if b.GroupDiscountAmount != 5500 {
		t.Fatalf("expected group discount 5500, got %d", b.GroupDiscountAmount)
	}
	if b.Total != 49500 {
		t.Fatalf("expected total 49500, got %d", b.Total)
	}
}

func TestComputeBreakdown_GroupBelowThreshold(t *testing.T) {
	b := ComputeBreakdown(10000, domain.Travelers{Adults: 4, Children: 1}, domain.PricingFlags{
		GroupThreshold:       6,
		GroupDiscountPercent: 10,
	})
	if b.GroupDiscountAmount != 0 {
		t.Fatalf("expected no group discount below threshold, got %d", b.GroupDiscountAmount)
	}
	if b.Total != b.Subtotal {
		t.Fatalf("expected total to equal subtotal, got total=%d subtotal=%d", b.Total, b.Subtotal)
	}
}

func TestComputeBreakdown_RoundsHalfUpPerStep(t *testing.T) {
	// 3333 * 15% = 499.95 cents; half-up rounding gives 500, not 499.
	b := ComputeBreakdown(3333, domain.Travelers{Adults: 1}, domain.PricingFlags{
		SingleSupplement:  true,
		SupplementPercent: 15,
	})
	if b.SingleSupplementAmount != 500 {
		t.Fatalf("expected supplement 500, got %d", b.SingleSupplementAmount)
	}

	// Child unit 3333 * 50% = 1666.5 rounds to 1667.
	c := ComputeBreakdown(3333, domain.Travelers{Adults: 1, Children: 1}, domain.PricingFlags{
		ChildDiscountPercent: 50,
	})
	if c.ChildUnitPrice != 1667 {
		t.Fatalf("expected child unit price 1667, got %d", c.ChildUnitPrice)
	}
}

func TestRoundPercent_ZeroAndNegative(t *testing.T) {
	if got := roundPercent(0, 20); got != 0 {
		t.Fatalf("expected 0 for zero amount, got %d", got)
	}
	if got := roundPercent(10000, 0); got != 0 {
		t.Fatalf("expected 0 for zero percent, got %d", got)
	}
	if got := roundPercent(-100, 20); got != 0 {
		t.Fatalf("expected 0 for negative amount, got %d", got)
	}
}
