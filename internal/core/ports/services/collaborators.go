package services

import (
	"context"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ActorResolver authenticates a bearer token and returns who is acting.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (domain.Actor, error)
}

// DocumentStore keeps binary attachments and delivered files behind opaque references.
type DocumentStore interface {
	Store(ctx context.Context, content []byte, contentType string) (string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Notifier consumes lifecycle events. Delivery is best effort; failures are
// the implementation's concern and never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, event domain.LifecycleEvent)
}

// PaymentInitiation is what the payment rail needs to open a checkout.
type PaymentInitiation struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Method    domain.PaymentMethod
}

// PaymentRail opens a checkout with an external payment provider.
type PaymentRail interface {
	Initiate(ctx context.Context, payment PaymentInitiation) (string, error)
}

// PaymentCallbackVerifier authenticates a payment rail callback. signature
// covers the reference and the amount the rail collected.
type PaymentCallbackVerifier interface {
	VerifyCallback(paymentReference string, paidAmount decimal.Decimal, signature string) bool
}

// CertificateRenderer produces the downloadable document of a certificate.
type CertificateRenderer interface {
	Render(ctx context.Context, certificate *domain.Certificate, entry *domain.DownloadEntry) ([]byte, string, error)
}
