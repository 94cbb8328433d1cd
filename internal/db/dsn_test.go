package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"url passthrough", "postgres://u:p@localhost:5432/procurement?sslmode=disable", "postgres://u:p@localhost:5432/procurement?sslmode=disable"},
		{"quoted url", `"postgres://u:p@localhost/procurement"`, "postgres://u:p@localhost/procurement"},
		{"kv gets sslmode default", "host=localhost user=app dbname=procurement", "host=localhost user=app dbname=procurement sslmode=disable"},
		{"kv keeps explicit sslmode", "host=localhost dbname=procurement sslmode=require", "host=localhost dbname=procurement sslmode=require"},
		{"kv collapses whitespace", "  host=localhost   dbname=procurement ", "host=localhost dbname=procurement sslmode=disable"},
		{"empty", "", ""},
		{"garbage unchanged", "not a dsn at all", "not a dsn at all"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeDSN(tc.in); got != tc.want {
				t.Fatalf("NormalizeDSN(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
