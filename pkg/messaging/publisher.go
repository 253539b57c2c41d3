// Package messaging defines the event publishing contract.
package messaging

import (
	"context"
)

// SalesCompletedSubject is the subject sale completion events are published to.
const SalesCompletedSubject = "sales.completed"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
