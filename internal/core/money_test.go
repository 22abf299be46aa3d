package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.5", 50, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{" 7.00 ", 700, false},
		{"", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"12a", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{100, "1.00"},
		{5, "0.05"},
		{-250, "-2.50"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := Money{Cents: 1000}
	b := Money{Cents: 300}
	if got := a.Add(b); got.Cents != 1300 {
		t.Errorf("Add = %d, want 1300", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 700 {
		t.Errorf("Sub = %d, want 700", got.Cents)
	}
}
