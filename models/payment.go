package models

// PaymentLink is what the payment provider returns for a reservation.
type PaymentLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentLinkRequest amounts are in minor currency units.
type PaymentLinkRequest struct {
	ReservationID string
	Amount        int64
	Currency      string
	CustomerName  string
	Phone         string
	Description   string
}

// PaymentEvent is a provider callback reduced to what reconciliation needs.
type PaymentEvent struct {
	Provider    string `json:"provider"`
	Type        string `json:"type"`
	Success     bool   `json:"success"`
	ReferenceID string `json:"referenceId,omitempty"`
	NotesID     string `json:"notesId,omitempty"`
	LinkID      string `json:"linkId,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	PaymentID   string `json:"paymentId,omitempty"`
	AmountPaid  int64  `json:"amountPaid,omitempty"`
}

// PaymentOutcome is how a payment callback was handled.
type PaymentOutcome string

const (
	OutcomeRejected    PaymentOutcome = "rejected"
	OutcomeIgnored     PaymentOutcome = "ignored"
	OutcomeUnresolved  PaymentOutcome = "unresolved"
	OutcomeAlreadyPaid PaymentOutcome = "already_paid"
	OutcomeConflict    PaymentOutcome = "conflict"
	OutcomeConfirmed   PaymentOutcome = "confirmed"
)
