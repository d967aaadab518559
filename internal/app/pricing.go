/**
 * @description
 * Pure price computation for a booking. ComputeBreakdown turns a canonical
 * per-adult price, the traveler counts, and the item's pricing flags into a
 * full PriceBreakdown. No I/O, deterministic, integer cents throughout.
 *
 * @notes
 * - Each multiplicative step (child discount, single supplement, group
 *   discount) rounds independently to the nearest cent, half up. Supplement
 *   and discount are both computed from the subtotal rather than a running
 *   total, so rounding error never compounds across steps.
 * - Supplement (exactly 1 traveler) and group discount (>= threshold
 *   travelers, threshold > 1) are mutually exclusive by construction, but the
 *   computation does not assume it; each condition is evaluated on its own.
 */

package app

import (
	"github.com/IBookTours/IBookTours-sub001/internal/domain"
)

// roundPercent applies percent to amount in integer cents, rounding half up.
func roundPercent(amount int64, percent int) int64 {
	if percent <= 0 || amount <= 0 {
		return 0
	}
	return (amount*int64(percent) + 50) / 100
}

// ComputeBreakdown computes the canonical price breakdown for a booking.
// The caller validates travelers.Adults >= 1.
func ComputeBreakdown(adultUnitPrice int64, travelers domain.Travelers, flags domain.PricingFlags) domain.PriceBreakdown {
	b := domain.PriceBreakdown{
		AdultUnitPrice: adultUnitPrice,
		AdultCount:     travelers.Adults,
		ChildCount:     travelers.Children,
	}

	b.AdultTotal = adultUnitPrice * int64(travelers.Adults)

	// Child unit price = adult price reduced by the child discount, rounded
	// to the nearest cent before multiplying by the head count.
	childUnit := adultUnitPrice
	if flags.ChildDiscountPercent > 0 {
		childUnit = (adultUnitPrice*int64(100-flags.ChildDiscountPercent) + 50) / 100
	}
	b.ChildUnitPrice = childUnit
	b.ChildTotal = childUnit * int64(travelers.Children)

	b.Subtotal = b.AdultTotal + b.ChildTotal

	if flags.SingleSupplement && travelers.Adults == 1 && travelers.Children == 0 {
		b.SingleSupplementAmount = roundPercent(b.Subtotal, flags.SupplementPercent)
	}

	if flags.GroupThreshold > 1 && travelers.Total() >= flags.GroupThreshold {
		b.GroupDiscountAmount = roundPercent(b.Subtotal, flags.GroupDiscountPercent)
	}

	b.Total = b.Subtotal + b.SingleSupplementAmount - b.GroupDiscountAmount
	return b
}
