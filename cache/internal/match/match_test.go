package match

import (
	"reflect"
	"testing"
)

func TestGlobToRegexp(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		match   bool
	}{
		{"idx:*", "idx:CAN::", true},
		{"idx:*", "stats:category", false},
		{"ns:?::", "ns:A::", true},
		{"ns:?::", "ns:AB::", false},
		{"ns:?::", "ns:::", false},
		{"idx:*:*:?*", "idx:::parking", true},
		{"idx:*:*:?*", "idx:CAN:N:", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		// regex metacharacters are literal
		{"a.b", "a.b", true},
		{"a.b", "axb", false},
		{"v[1]", "v[1]", true},
		{"v[1]", "v1", false},
	}
	for _, tc := range cases {
		re := GlobToRegexp(tc.pattern)
		if got := re.MatchString(tc.key); got != tc.match {
			t.Errorf("GlobToRegexp(%q).MatchString(%q) = %v, want %v", tc.pattern, tc.key, got, tc.match)
		}
	}
}

func TestFilter(t *testing.T) {
	keys := []string{"ns:A::", "ns:B::", "ns::1:"}

	got := Filter(keys, "ns:?::")
	want := []string{"ns:A::", "ns:B::"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter = %v, want %v", got, want)
	}

	if got := Filter(keys, "*"); len(got) != len(keys) {
		t.Fatalf("Filter(*) = %v, want all keys", got)
	}
	if got := Filter(keys, ""); len(got) != len(keys) {
		t.Fatalf("Filter(\"\") = %v, want all keys", got)
	}
	if got := Filter(keys, "other:*"); got != nil {
		t.Fatalf("Filter(no match) = %v, want nil", got)
	}
}
