/**
 * @description
 * The product policy registry: a static table mapping each product type to
 * its business rules (approval requirement, allowed payment methods, deposit
 * percentage, confirmation mode). The table is built and validated once at
 * startup and never mutated at runtime; these are business/legal rules, so
 * changing them requires a deploy.
 */

package app

import (
	"fmt"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
)

// PolicyRegistry is the static product-type → policy lookup table.
type PolicyRegistry struct {
	policies map[domain.ProductType]domain.ProductPolicy
}

// DefaultPolicies returns the shipped policy table. Day tours confirm
// instantly on payment; vacation packages and car rentals need a manual
// admin review before a paid booking is confirmed.
func DefaultPolicies() []domain.ProductPolicy {
	return []domain.ProductPolicy{
		{
			ProductType:           domain.ProductDayTour,
			RequiresApproval:      false,
			AllowedPaymentMethods: []domain.PaymentMethod{domain.PaymentMethodFull, domain.PaymentMethodCashOnArrival},
			DefaultPaymentMethod:  domain.PaymentMethodFull,
			DepositPercent:        0,
			InstantConfirmation:   true,
		},
		{
			ProductType:           domain.ProductVacationPackage,
			RequiresApproval:      true,
			AllowedPaymentMethods: []domain.PaymentMethod{domain.PaymentMethodFull, domain.PaymentMethodDeposit},
			DefaultPaymentMethod:  domain.PaymentMethodDeposit,
			DepositPercent:        30,
			InstantConfirmation:   false,
		},
		{
			ProductType:           domain.ProductCarRental,
			RequiresApproval:      true,
			AllowedPaymentMethods: []domain.PaymentMethod{domain.PaymentMethodFull, domain.PaymentMethodDeposit},
			DefaultPaymentMethod:  domain.PaymentMethodFull,
			DepositPercent:        20,
			InstantConfirmation:   false,
		},
		{
			ProductType:           domain.ProductHotel,
			RequiresApproval:      false,
			AllowedPaymentMethods: []domain.PaymentMethod{domain.PaymentMethodFull, domain.PaymentMethodDeposit, domain.PaymentMethodCashOnArrival},
			DefaultPaymentMethod:  domain.PaymentMethodFull,
			DepositPercent:        15,
			InstantConfirmation:   true,
		},
	}
}

// NewPolicyRegistry builds and validates the registry. Construction fails on
// a policy that violates the table invariants, so a bad deploy never boots.
func NewPolicyRegistry(policies []domain.ProductPolicy) (*PolicyRegistry, error) {
	table := make(map[domain.ProductType]domain.ProductPolicy, len(policies))
	for _, p := range policies {
		if !p.ProductType.Valid() {
			return nil, fmt.Errorf("policy for unknown product type %q", p.ProductType)
		}
		if p.DepositPercent < 0 || p.DepositPercent > 100 {
			return nil, fmt.Errorf("policy %s: deposit percent %d out of range", p.ProductType, p.DepositPercent)
		}
		if len(p.AllowedPaymentMethods) == 0 {
			return nil, fmt.Errorf("policy %s: no payment methods allowed", p.ProductType)
		}
		if !p.AllowsMethod(p.DefaultPaymentMethod) {
			return nil, fmt.Errorf("policy %s: default method %s not in allowed set", p.ProductType, p.DefaultPaymentMethod)
		}
		if p.RequiresApproval {
			if p.InstantConfirmation {
				return nil, fmt.Errorf("policy %s: approval-gated products cannot confirm instantly", p.ProductType)
			}
			// Cash cannot fund a deposit hold, so an approval-gated product
			// must not accept cash on arrival.
			if p.AllowsMethod(domain.PaymentMethodCashOnArrival) {
				return nil, fmt.Errorf("policy %s: approval-gated products cannot accept cash on arrival", p.ProductType)
			}
		}
		if _, dup := table[p.ProductType]; dup {
			return nil, fmt.Errorf("duplicate policy for product type %s", p.ProductType)
		}
		table[p.ProductType] = p
	}
	return &PolicyRegistry{policies: table}, nil
}

// Get returns the policy for a product type.
func (r *PolicyRegistry) Get(productType domain.ProductType) (domain.ProductPolicy, error) {
	p, ok := r.policies[productType]
	if !ok {
		return domain.ProductPolicy{}, fmt.Errorf("no policy for product type %q", productType)
	}
	return p, nil
}

// IsPaymentMethodAllowed reports whether the product type permits the method.
func (r *PolicyRegistry) IsPaymentMethodAllowed(productType domain.ProductType, method domain.PaymentMethod) bool {
	p, ok := r.policies[productType]
	if !ok {
		return false
	}
	return p.AllowsMethod(method)
}

// ComputeDeposit returns the upfront charge for a deposit booking, rounded
// half up to the nearest cent.
func (r *PolicyRegistry) ComputeDeposit(productType domain.ProductType, totalCents int64) (int64, error) {
	p, ok := r.policies[productType]
	if !ok {
		return 0, fmt.Errorf("no policy for product type %q", productType)
	}
	return roundPercent(totalCents, p.DepositPercent), nil
}

// ComputeBalance returns the remainder due after the deposit. Deposit plus
// balance always equals the total.
func (r *PolicyRegistry) ComputeBalance(productType domain.ProductType, totalCents int64) (int64, error) {
	deposit, err := r.ComputeDeposit(productType, totalCents)
	if err != nil {
		return 0, err
	}
	return totalCents - deposit, nil
}
