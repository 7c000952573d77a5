package domain

import "time"

// PaymentState enumerates the per-request payment lifecycle. A transaction
// only ever moves forward: unpaid -> verified -> settled, with rejected as a
// terminal branch off unpaid.
type PaymentState string

const (
	PaymentUnpaid   PaymentState = "unpaid"
	PaymentVerified PaymentState = "verified"
	PaymentSettled  PaymentState = "settled"
	PaymentRejected PaymentState = "rejected"
)

// PaymentTransaction records one verify/settle handshake. Created at verify
// time, mutated exactly once at settle time.
type PaymentTransaction struct {
	PaymentHash      string
	Endpoint         string
	Amount           float64
	Verified         bool
	Settled          bool
	ClientIdentifier string
	CreatedAt        time.Time
	VerifiedAt       *time.Time
	SettledAt        *time.Time
}

// PaymentVerification is the facilitator's answer to a verify call.
type PaymentVerification struct {
	PaymentHash string
	Amount      float64
}
