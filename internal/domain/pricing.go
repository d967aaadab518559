package domain

// PricingFlags are the per-item pricing rules that shape a price breakdown.
// They come from the catalog entry for the bookable item, except for
// SingleSupplement which is a traveler opt-in carried on the request.
type PricingFlags struct {
	SingleSupplement     bool `json:"single_supplement"`
	SupplementPercent    int  `json:"supplement_percent"`
	ChildDiscountPercent int  `json:"child_discount_percent"`
	GroupThreshold       int  `json:"group_threshold"`
	GroupDiscountPercent int  `json:"group_discount_percent"`
}

// PriceBreakdown is the server-computed price for a booking. It is recomputed
// on demand from the canonical per-adult price and is never persisted as a
// source of truth. All amounts are in integer cents.
type PriceBreakdown struct {
	AdultUnitPrice int64 `json:"adult_unit_price"`
	AdultCount     int   `json:"adult_count"`
	AdultTotal     int64 `json:"adult_total"`

	ChildUnitPrice int64 `json:"child_unit_price"`
	ChildCount     int   `json:"child_count"`
	ChildTotal     int64 `json:"child_total"`

	Subtotal int64 `json:"subtotal"`

	SingleSupplementAmount int64 `json:"single_supplement_amount"`
	GroupDiscountAmount    int64 `json:"group_discount_amount"`

	Total int64 `json:"total"`
}

// CatalogItemType tells which catalog a canonical price came from.
type CatalogItemType string

const (
	CatalogDayTour         CatalogItemType = "day_tour"
	CatalogVacationPackage CatalogItemType = "vacation_package"
	CatalogDestination     CatalogItemType = "destination"
)

// CatalogItem is the canonical price record for a bookable item as resolved
// from the content source.
type CatalogItem struct {
	ItemID         string          `json:"item_id"`
	ItemType       CatalogItemType `json:"item_type"`
	UnitPriceCents int64           `json:"unit_price_cents"` // per adult
	Currency       string          `json:"currency"`
	Flags          PricingFlags    `json:"flags"`
}

// VerificationResult is the outcome of comparing a client-submitted amount
// against the canonical server-side computation.
type VerificationResult struct {
	Valid         bool   `json:"valid"`
	ExpectedCents int64  `json:"expected_cents"`
	Reason        string `json:"reason,omitempty"`
}
