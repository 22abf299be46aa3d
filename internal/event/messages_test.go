package event

import "testing"

func TestChangeMessageRoundTrip(t *testing.T) {
	msg := NewLedgerChanged("local", "tx-42")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := ChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Kind != KindLedgerChanged || got.UserID != "local" || got.Ref != "tx-42" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestNewBudgetSaved(t *testing.T) {
	msg := NewBudgetSaved("local", 2024)
	if msg.Kind != KindBudgetSaved {
		t.Errorf("kind = %q", msg.Kind)
	}
	if msg.Ref != "2024" {
		t.Errorf("ref = %q", msg.Ref)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
