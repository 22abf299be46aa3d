package insight

import "testing"

func TestTracker_Supersede(t *testing.T) {
	tr := NewTracker()

	first := tr.Begin("suggest:u1")
	if !tr.Current("suggest:u1", first) {
		t.Fatal("first token should be current")
	}

	second := tr.Begin("suggest:u1")
	if tr.Current("suggest:u1", first) {
		t.Error("first token should be superseded")
	}
	if !tr.Current("suggest:u1", second) {
		t.Error("second token should be current")
	}
}

func TestTracker_KeysAreIndependent(t *testing.T) {
	tr := NewTracker()

	a := tr.Begin("suggest:u1")
	b := tr.Begin("summary:u1")

	tr.Begin("suggest:u1")
	if tr.Current("suggest:u1", a) {
		t.Error("suggest token should be superseded")
	}
	if !tr.Current("summary:u1", b) {
		t.Error("summary token should be unaffected")
	}
}
