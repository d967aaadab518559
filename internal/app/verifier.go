/**
 * @description
 * PriceVerifier reconciles a client-submitted amount against the canonical
 * server-side price before any money moves. The client amount is untrusted
 * advisory data; the verified expected amount is what gets charged.
 *
 * @notes
 * - Comparison is exact: any difference, however small, is a mismatch. A
 *   percentage tolerance would let an attacker skim a fixed fraction off
 *   large transactions, so tolerance is deliberately not a parameter here.
 */

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
)

// PriceVerifier checks submitted amounts against the canonical catalog price.
type PriceVerifier struct {
	catalog store.PriceSource
}

// NewPriceVerifier creates a new PriceVerifier.
func NewPriceVerifier(catalog store.PriceSource) *PriceVerifier {
	return &PriceVerifier{catalog: catalog}
}

// Verify looks up the canonical per-adult price for the item, recomputes the
// breakdown server-side, and compares with zero tolerance. The traveler's
// single-supplement opt-in comes from the request; every other pricing flag
// comes from the catalog entry.
func (v *PriceVerifier) Verify(ctx context.Context, tourID string, submittedCents int64, travelers domain.Travelers, singleSupplement bool) (domain.VerificationResult, error) {
	item, err := v.catalog.GetCanonicalUnitPrice(ctx, tourID)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return domain.VerificationResult{Valid: false, Reason: "item not found"}, store.ErrItemNotFound
		}
		return domain.VerificationResult{}, fmt.Errorf("canonical price lookup: %w", err)
	}

	flags := item.Flags
	flags.SingleSupplement = singleSupplement

	breakdown := ComputeBreakdown(item.UnitPriceCents, travelers, flags)

	result := domain.VerificationResult{
		Valid:         breakdown.Total == submittedCents,
		ExpectedCents: breakdown.Total,
	}
	if !result.Valid {
		result.Reason = "amount mismatch"
	}
	return result, nil
}
