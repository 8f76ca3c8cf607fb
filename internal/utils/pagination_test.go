package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"42", 0, 42},
		{"", 10, 10},
		{"x", 5, 5},
		{"-3", 1, -3},
		{"2.5", 7, 7},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.in, tc.def); got != tc.want {
			t.Errorf("AtoiDefault(%q, %d) = %d, want %d", tc.in, tc.def, got, tc.want)
		}
	}
}

func TestClampInt(t *testing.T) {
	if got := ClampInt(0, 1, 100); got != 1 {
		t.Fatalf("below lower bound: %d", got)
	}
	if got := ClampInt(250, 1, 100); got != 100 {
		t.Fatalf("above upper bound: %d", got)
	}
	if got := ClampInt(20, 1, 100); got != 20 {
		t.Fatalf("in range: %d", got)
	}
}
