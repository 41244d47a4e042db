package domain

import "time"

// LifecycleEventKind names an outgoing workflow or ledger event.
type LifecycleEventKind string

const (
	EventSubmitted         LifecycleEventKind = "declaration.submitted"
	EventRouted            LifecycleEventKind = "declaration.routed"
	EventVerified          LifecycleEventKind = "declaration.verified"
	EventRejected          LifecycleEventKind = "declaration.rejected"
	EventValidated         LifecycleEventKind = "declaration.validated"
	EventArchived          LifecycleEventKind = "declaration.archived"
	EventCertificateIssued LifecycleEventKind = "certificate.issued"
	EventPaymentConfirmed  LifecycleEventKind = "certificate.payment_confirmed"
)

// LifecycleEvent is a side effect declared by the core. Sending anything to a
// person is the notification dispatcher's job.
type LifecycleEvent struct {
	Kind          LifecycleEventKind `json:"kind"`
	DeclarationID string             `json:"declarationID"`
	RecipientID   string             `json:"recipientID"`
	Context       string             `json:"context,omitempty"`
	Attributes    map[string]string  `json:"attributes,omitempty"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

func newEvent(kind LifecycleEventKind, d *Declaration, now time.Time, context string, attrs map[string]string) LifecycleEvent {
	return LifecycleEvent{
		Kind:          kind,
		DeclarationID: d.ID,
		RecipientID:   d.GuardianID,
		Context:       context,
		Attributes:    attrs,
		OccurredAt:    now,
	}
}

// SubmittedEvent is emitted once a guardian's declaration has been stored.
func SubmittedEvent(d *Declaration) LifecycleEvent {
	return newEvent(EventSubmitted, d, d.CreatedAt, "declaration received by the municipal office",
		map[string]string{"municipalOfficeID": d.MunicipalOfficeID})
}

// CertificateIssuedEvent is emitted when a certificate has been minted for a declaration.
func CertificateIssuedEvent(c *Certificate) LifecycleEvent {
	return LifecycleEvent{
		Kind:          EventCertificateIssued,
		DeclarationID: c.DeclarationID,
		RecipientID:   c.GuardianID,
		Context:       "birth certificate " + c.Reference() + " is available",
		Attributes: map[string]string{
			"certificateID": c.ID,
			"reference":     c.Reference(),
		},
		OccurredAt: c.IssuedAt,
	}
}

// PaymentConfirmedEvent is emitted on the first confirmation of a download payment.
func PaymentConfirmedEvent(c *Certificate, e *DownloadEntry) LifecycleEvent {
	at := e.RequestedAt
	if e.PaidAt != nil {
		at = *e.PaidAt
	}
	return LifecycleEvent{
		Kind:          EventPaymentConfirmed,
		DeclarationID: c.DeclarationID,
		RecipientID:   e.RequestedBy,
		Context:       "payment received, your copies are ready",
		Attributes: map[string]string{
			"certificateID":    c.ID,
			"paymentReference": e.PaymentReference,
			"amount":           e.Amount.String(),
		},
		OccurredAt: at,
	}
}
