package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out Money
		ok  bool
	}{
		{"1234", 1234, true},
		{"$1.234.567", 1234567, true},
		{"1.234", 1234, true},
		{" $ 15.990 ", 15990, true},
		{"CLP 500", 500, true},
		{"-4.500", -4500, true},
		{"-12,345", -12, true}, // comma starts a discarded fractional part
		{"0", 0, true},
		{"", 0, false},
		{"-", 0, false},
		{"abc", 0, false},
		{"$", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("ParseAmount(%q) = %d, %v; want %d", tc.in, got, err, tc.out)
			}
		} else if err == nil {
			t.Fatalf("ParseAmount(%q) expected error, got %d", tc.in, got)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		in  Money
		out string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1.000"},
		{123456, "123.456"},
		{1234567, "1.234.567"},
		{-4500, "-4.500"},
		{-1000000, "-1.000.000"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.out {
			t.Errorf("Money(%d).String() = %q, want %q", int64(tc.in), got, tc.out)
		}
	}
}

func TestMoneyAbs(t *testing.T) {
	if got := Money(-500).Abs(); got != 500 {
		t.Errorf("Abs(-500) = %d", int64(got))
	}
	if got := Money(500).Abs(); got != 500 {
		t.Errorf("Abs(500) = %d", int64(got))
	}
}
