package domain

import (
	"math"
	"testing"
)

func TestFingerprintCanonicalPoint(t *testing.T) {
	a := Fingerprint("over", nil, FloatPtr(2), BetTypeTotals, "ev1")
	b := Fingerprint("over", nil, FloatPtr(2.0), BetTypeTotals, "ev1")
	if a != b {
		t.Fatalf("2 and 2.0 fingerprint differently: %s vs %s", a, b)
	}
	negZero := math.Copysign(0, -1)
	if Fingerprint("home", nil, FloatPtr(negZero), BetTypeSpreads, "ev1") !=
		Fingerprint("home", nil, FloatPtr(0), BetTypeSpreads, "ev1") {
		t.Fatal("-0 and 0 fingerprint differently")
	}
}

func TestFingerprintStable(t *testing.T) {
	desc := "1st half"
	descCopy := string([]byte(desc))
	a := Fingerprint("home", &desc, FloatPtr(-1.5), BetTypeSpreads, "ev1")
	b := Fingerprint("home", &descCopy, FloatPtr(-1.5), BetTypeSpreads, "ev1")
	if a != b {
		t.Fatalf("equal tuples fingerprint differently: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("fingerprint length = %d, want 16", len(a))
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	desc := "1st half"
	empty := ""
	base := Fingerprint("home", &desc, FloatPtr(1.5), BetTypeSpreads, "ev1")

	tests := []struct {
		name string
		fp   string
	}{
		{"name", Fingerprint("away", &desc, FloatPtr(1.5), BetTypeSpreads, "ev1")},
		{"description", Fingerprint("home", StrPtr("2nd half"), FloatPtr(1.5), BetTypeSpreads, "ev1")},
		{"absent description", Fingerprint("home", nil, FloatPtr(1.5), BetTypeSpreads, "ev1")},
		{"point", Fingerprint("home", &desc, FloatPtr(2.5), BetTypeSpreads, "ev1")},
		{"absent point", Fingerprint("home", &desc, nil, BetTypeSpreads, "ev1")},
		{"bet type", Fingerprint("home", &desc, FloatPtr(1.5), BetTypeAsianSpreads, "ev1")},
		{"event", Fingerprint("home", &desc, FloatPtr(1.5), BetTypeSpreads, "ev2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fp == base {
				t.Fatalf("fingerprint unchanged when %s differs", tt.name)
			}
		})
	}

	if Fingerprint("draw", &empty, nil, BetTypeH2H, "ev1") == Fingerprint("draw", nil, nil, BetTypeH2H, "ev1") {
		t.Fatal("empty description collides with absent description")
	}
	if Fingerprint("over", nil, FloatPtr(0), BetTypeTotals, "ev1") == Fingerprint("over", nil, nil, BetTypeTotals, "ev1") {
		t.Fatal("zero point collides with absent point")
	}
}

func TestParseBetType(t *testing.T) {
	tests := []struct {
		in      string
		want    BetType
		wantErr bool
	}{
		{"h2h", BetTypeH2H, false},
		{" Totals ", BetTypeTotals, false},
		{"asian_spreads", BetTypeAsianSpreads, false},
		{"corners", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBetType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBetType(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseBetType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
