package main

import (
	"testing"
)

func TestHumanReadableSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1000, "1.0 kB"},
		{1500, "1.5 kB"},
		{1000000, "1.0 MB"},
		{2500000000, "2.5 GB"},
	}

	for _, c := range cases {
		if got := humanReadableSize(c.in); got != c.want {
			t.Errorf("humanReadableSize(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
