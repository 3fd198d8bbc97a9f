// Package notify delivers one-time codes to users. The auth service emits a
// CodeDelivery and moves on; actual sending happens behind the Sender
// interface, either inline over SMTP or through Kafka and the delivery worker.
package notify

import (
	"context"
	"time"
)

// CodeDelivery is a request to deliver a one-time code to an email address.
// It carries the plaintext code, so it must never be persisted or logged.
type CodeDelivery struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Code     string    `json:"code"`
	Purpose  string    `json:"purpose"`
	IssuedAt time.Time `json:"issued_at"`
}

// Sender delivers a code to its recipient.
type Sender interface {
	Send(ctx context.Context, d CodeDelivery) error
}
