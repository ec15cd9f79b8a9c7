package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"flowfunds/internal/core"
)

// EventType names a change to the transaction collection.
type EventType string

const (
	EventCreated  EventType = "transaction.created"
	EventUpdated  EventType = "transaction.updated"
	EventDeleted  EventType = "transaction.deleted"
	EventImported EventType = "transactions.imported"
	EventCleared  EventType = "transactions.cleared"
)

func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted, EventImported, EventCleared:
		return true
	}
	return false
}

// Event describes one change. Transaction is set for created and updated
// events, Count for bulk events.
type Event struct {
	Type          EventType         `json:"type"`
	TransactionID string            `json:"transactionId,omitempty"`
	Transaction   *core.Transaction `json:"transaction,omitempty"`
	Count         int               `json:"count,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(typ EventType, tx *core.Transaction) Event {
	ev := Event{Type: typ, Timestamp: time.Now().UTC()}
	if tx != nil {
		ev.TransactionID = tx.ID
		if typ != EventDeleted {
			c := *tx
			ev.Transaction = &c
		}
	}
	return ev
}

// NewBulkEvent creates an imported or cleared event carrying a record count.
func NewBulkEvent(typ EventType, count int) Event {
	return Event{Type: typ, Count: count, Timestamp: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects unknown types.
func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return &ev, nil
}
