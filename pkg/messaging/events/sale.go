package events

import (
	"encoding/json"
	"time"

	"github.com/tiendatech/inventory/pkg/messaging"
)

// SaleCompletedEvent is published after a sale has been committed to the
// inventory. AuditRecorded is false when the sale record insert failed, so
// consumers can alert on audit loss.
type SaleCompletedEvent struct {
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int64     `json:"quantity"`
	Total         float64   `json:"total"`
	User          *string   `json:"user"`
	AuditRecorded bool      `json:"audit_recorded"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e SaleCompletedEvent) Subject() string {
	return messaging.SalesCompletedSubject
}

func (e SaleCompletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
