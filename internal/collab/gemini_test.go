package collab

import "testing"

func TestParseAmountReply(t *testing.T) {
	cases := []struct {
		in   string
		want string // "" means nil
	}{
		{"420.50", "420.5"},
		{" 1250 \n", "1250"},
		{"The total is 99.99", "99.99"},
		{"NONE", ""},
		{"none", ""},
		{"", ""},
		{"no price mentioned", ""},
		{"-15.00", ""},
		{"0", ""},
	}
	for _, c := range cases {
		got, err := parseAmountReply(c.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", c.in, err)
		}
		if c.want == "" {
			if got != nil {
				t.Fatalf("%q: expected no amount, got %s", c.in, got)
			}
			continue
		}
		if got == nil {
			t.Fatalf("%q: expected %s, got nil", c.in, c.want)
		}
		if got.String() != c.want {
			t.Fatalf("%q: expected %s, got %s", c.in, c.want, got)
		}
	}
}
