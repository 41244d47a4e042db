package payment

import (
	"context"
	"fmt"
	"net/url"

	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
)

// CheckoutRail builds hosted checkout links for the mobile money aggregator.
// The aggregator calls back /payments/confirm with the same reference.
type CheckoutRail struct {
	base *url.URL
}

func NewCheckoutRail(baseURL string) (*CheckoutRail, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse checkout base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("checkout base url %q must be absolute", baseURL)
	}
	return &CheckoutRail{base: u}, nil
}

var _ portssvc.PaymentRail = (*CheckoutRail)(nil)

func (r *CheckoutRail) Initiate(_ context.Context, p portssvc.PaymentInitiation) (string, error) {
	if p.Reference == "" {
		return "", fmt.Errorf("payment reference is required")
	}
	if !p.Method.Valid() {
		return "", fmt.Errorf("unsupported payment method %q", p.Method)
	}

	u := *r.base
	u.Path = u.JoinPath(string(p.Method)).Path
	q := u.Query()
	q.Set("reference", p.Reference)
	q.Set("amount", p.Amount.StringFixed(0))
	q.Set("currency", p.Currency)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
