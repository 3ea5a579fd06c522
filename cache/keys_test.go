package cache

import (
	"strings"
	"testing"
)

func TestKeyConvention(t *testing.T) {
	cases := []struct {
		name string
		dims []string
		want string
	}{
		{"all_items", []string{"", "", ""}, "idx:::"},
		{"partition_only", []string{"CAN", "", ""}, "idx:CAN::"},
		{"category_only", []string{"", "N", ""}, "idx::N:"},
		{"combo", []string{"CAN", "N", ""}, "idx:CAN:N:"},
		{"term", []string{"", "", "parking"}, "idx:::parking"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Key("idx", tc.dims...); got != tc.want {
				t.Fatalf("Key = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSegmentHashing(t *testing.T) {
	// separator and wildcard characters must never leak into a segment
	for _, s := range []string{"a:b", "a*b", "a?b", strings.Repeat("x", maxRawSegment+1)} {
		got := Segment(s)
		if strings.ContainsAny(got, ":*?") {
			t.Fatalf("Segment(%q) = %q contains key grammar characters", s, got)
		}
		if len(got) != 16 {
			t.Fatalf("Segment(%q) = %q, want 16 hex chars", s, got)
		}
		if got != Segment(s) {
			t.Fatalf("Segment(%q) not deterministic", s)
		}
	}

	// plain values pass through
	if got := Segment("budget"); got != "budget" {
		t.Fatalf("Segment(budget) = %q", got)
	}
	if got := Segment(""); got != "" {
		t.Fatalf("Segment(empty) = %q", got)
	}
}
