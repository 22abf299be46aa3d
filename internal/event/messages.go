package event

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	KindLedgerChanged = "ledger.changed"
	KindBudgetSaved   = "budget.saved"
)

// ChangeMessage is a lightweight notification that a user's ledger or budget
// changed. It carries only identifiers, the worker re-reads the full state
// from the store.
type ChangeMessage struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Ref       string    `json:"ref"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChanged builds a notification for a transaction create, update or delete.
func NewLedgerChanged(userID, txID string) *ChangeMessage {
	return &ChangeMessage{
		UserID:    userID,
		Kind:      KindLedgerChanged,
		Ref:       txID,
		Timestamp: time.Now(),
	}
}

// NewBudgetSaved builds a notification for an annual budget save.
func NewBudgetSaved(userID string, year int) *ChangeMessage {
	return &ChangeMessage{
		UserID:    userID,
		Kind:      KindBudgetSaved,
		Ref:       strconv.Itoa(year),
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
