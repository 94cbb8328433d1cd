package money

import "testing"

func amt(t *testing.T, s string) Money {
	t.Helper()
	m, err := Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return m
}

func TestAllocateSharesSumToTotal(t *testing.T) {
	cases := []struct {
		name    string
		total   string
		weights []string
		want    []string
	}{
		{"proportional", "250", []string{"200", "100"}, []string{"166.67", "83.33"}},
		{"even split", "100", []string{"1", "1"}, []string{"50", "50"}},
		{"single line", "99.99", []string{"3"}, []string{"99.99"}},
		{"zero weights fall to last", "75", []string{"0", "0", "0"}, []string{"0", "0", "75"}},
		{"repeating fraction", "100", []string{"1", "1", "1"}, []string{"33.33", "33.33", "33.34"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			weights := make([]Money, len(tc.weights))
			for i, w := range tc.weights {
				weights[i] = amt(t, w)
			}
			shares := Allocate(amt(t, tc.total), weights)
			if len(shares) != len(tc.want) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tc.want))
			}
			sum := Zero
			for i, s := range shares {
				if !s.Equal(amt(t, tc.want[i])) {
					t.Errorf("share[%d] = %s, want %s", i, s, tc.want[i])
				}
				sum = sum.Add(s)
			}
			if !sum.Equal(Cents(amt(t, tc.total))) {
				t.Errorf("shares sum to %s, want %s", sum, tc.total)
			}
		})
	}
}

func TestAllocateEmptyWeights(t *testing.T) {
	if shares := Allocate(amt(t, "10"), nil); len(shares) != 0 {
		t.Fatalf("expected no shares, got %d", len(shares))
	}
}

func TestPercentGuardsZeroDenominator(t *testing.T) {
	if got := Percent(amt(t, "50"), Zero); !got.IsZero() {
		t.Fatalf("percent of zero whole = %s, want 0", got)
	}
	if got := Percent(amt(t, "50"), amt(t, "200")); !got.Equal(amt(t, "25")) {
		t.Fatalf("percent = %s, want 25", got)
	}
	// One third saved rounds to two decimals.
	if got := Percent(amt(t, "1"), amt(t, "3")); !got.Equal(amt(t, "33.33")) {
		t.Fatalf("percent = %s, want 33.33", got)
	}
}

func TestSafeDivide(t *testing.T) {
	if got := SafeDivide(amt(t, "10"), Zero, 2); !got.IsZero() {
		t.Fatalf("divide by zero = %s, want 0", got)
	}
	if got := SafeDivide(amt(t, "1500"), amt(t, "2"), 2); !got.Equal(amt(t, "750")) {
		t.Fatalf("divide = %s, want 750", got)
	}
}

func TestFromFloatRoundsToCents(t *testing.T) {
	if got := FromFloat(19.999); !got.Equal(amt(t, "20")) {
		t.Fatalf("FromFloat = %s, want 20", got)
	}
	if got := FromCents(12345); !got.Equal(amt(t, "123.45")) {
		t.Fatalf("FromCents = %s, want 123.45", got)
	}
}
