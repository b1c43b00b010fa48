package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -5: DefaultLimit, 10: 10, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParamsOffset(t *testing.T) {
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected zero offset for first page, got %d", got)
	}
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := (Params{Page: 2, Limit: 1000}).Offset(); got != MaxLimit {
		t.Fatalf("expected offset to use capped limit, got %d", got)
	}
}

func TestParseOrder(t *testing.T) {
	if got, err := ParseOrder("", OrderDesc); err != nil || got != OrderDesc {
		t.Fatalf("expected fallback, got %q %v", got, err)
	}
	if got, err := ParseOrder(" asc ", OrderDesc); err != nil || got != OrderAsc {
		t.Fatalf("expected ASC, got %q %v", got, err)
	}
	if _, err := ParseOrder("sideways", OrderAsc); err == nil {
		t.Fatal("expected invalid order error")
	}
}
