package cmds

import "testing"

func TestThreadSelection(t *testing.T) {
	cases := []struct {
		all, allSet, only bool
		want              bool
		ok                bool
	}{
		{all: true, want: true, ok: true},                 // configured default
		{all: true, allSet: true, want: true, ok: true},   // explicit -A
		{only: true, want: false, ok: true},               // -O overrides the default
		{all: true, only: true, want: false, ok: true},    // -O with all-threads config
		{all: true, allSet: true, only: true, ok: false},  // -A -O together
		{allSet: true, only: true, want: false, ok: true}, // explicit -A=false -O
	}
	for i, c := range cases {
		got, err := threadSelection(c.all, c.allSet, c.only)
		if c.ok != (err == nil) {
			t.Errorf("case %d: err = %v, want ok=%v", i, err, c.ok)
			continue
		}
		if c.ok && got != c.want {
			t.Errorf("case %d: threadSelection = %v, want %v", i, got, c.want)
		}
	}
}

func TestParsePid(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1234", 1234, true},
		{"0x4d2", 1234, true},
		{"0X4D2", 1234, true},
		{"02322", 1234, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"0x", 0, false},
	}
	for _, c := range cases {
		got, err := parsePid(c.in)
		if c.ok != (err == nil) {
			t.Errorf("parsePid(%q) err = %v, want ok=%v", c.in, err, c.ok)
			continue
		}
		if c.ok && got != c.want {
			t.Errorf("parsePid(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
