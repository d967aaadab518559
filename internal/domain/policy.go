package domain

// ProductType identifies the kind of bookable product. Business rules differ
// per product type, so every booking carries one.
type ProductType string

const (
	ProductDayTour         ProductType = "day_tour"
	ProductVacationPackage ProductType = "vacation_package"
	ProductCarRental       ProductType = "car_rental"
	ProductHotel           ProductType = "hotel"
)

// Valid reports whether the product type is one of the known values.
func (p ProductType) Valid() bool {
	switch p {
	case ProductDayTour, ProductVacationPackage, ProductCarRental, ProductHotel:
		return true
	}
	return false
}

// PaymentMethod is how a booking is funded.
type PaymentMethod string

const (
	PaymentMethodFull          PaymentMethod = "full"
	PaymentMethodDeposit       PaymentMethod = "deposit"
	PaymentMethodCashOnArrival PaymentMethod = "cash_on_arrival"
)

// ProductPolicy holds the business rules for one product type. Policies are
// immutable and loaded at startup; changing them requires a deploy.
type ProductPolicy struct {
	ProductType           ProductType     `json:"product_type"`
	RequiresApproval      bool            `json:"requires_approval"`
	AllowedPaymentMethods []PaymentMethod `json:"allowed_payment_methods"`
	DefaultPaymentMethod  PaymentMethod   `json:"default_payment_method"`
	DepositPercent        int             `json:"deposit_percent"` // 0-100
	InstantConfirmation   bool            `json:"instant_confirmation"`
}

// AllowsMethod reports whether the policy permits the given payment method.
func (p ProductPolicy) AllowsMethod(method PaymentMethod) bool {
	for _, m := range p.AllowedPaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}
