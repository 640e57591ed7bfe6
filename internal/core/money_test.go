package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "15000", want: 1500000},
		{in: "15,000", want: 1500000},
		{in: " 1 250.5 ", want: 125050},
		{in: "1_000.25", want: 100025},
		{in: "1250.505", want: 125051},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("error %v does not wrap ErrInvalidAmount", err)
				}
				return
			}
			if got.Cents != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got.Cents, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 125050})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "1250.5" {
		t.Errorf("Marshal = %s, want 1250.5", b)
	}

	for in, want := range map[string]int64{`15000`: 1500000, `"99.99"`: 9999, `null`: 0, `""`: 0, `0.004`: 0} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("Unmarshal(%s): %v", in, err)
		}
		if m.Cents != want {
			t.Errorf("Unmarshal(%s) = %d, want %d", in, m.Cents, want)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"lots"`), &m); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMoneyFormat(t *testing.T) {
	m := Money{Cents: 1500000}
	if got := m.String(); got != "15000.00" {
		t.Errorf("String() = %q", got)
	}
	if got := m.Format("USD"); got != "$15,000.00" {
		t.Errorf("Format(USD) = %q", got)
	}
	if got := m.Format(""); got == "" || got == m.String() {
		t.Errorf("Format() should apply the default currency, got %q", got)
	}
}
