package bitmap

import "testing"

func mustParse(t *testing.T, s string) Bits {
	t.Helper()
	b, err := Parse(s)
	if err != nil {
		t.Fatalf("bugged test setup: %v", err)
	}
	return b
}

func TestParse(t *testing.T) {
	b := mustParse(t, "1011 0")
	if b.Len() != 5 || b.String() != "10110" {
		t.Errorf("Parse(%q) == %v (len %d), want 10110", "1011 0", b, b.Len())
	}
	if _, err := Parse("10x"); err == nil {
		t.Errorf("Parse(%q) did not fail", "10x")
	}
}

func TestPushAcrossWords(t *testing.T) {
	var b Bits
	for i := 0; i < 130; i++ {
		b.Push(i%3 == 0)
	}
	if b.Len() != 130 {
		t.Fatalf("Len() == %d, want 130", b.Len())
	}
	for i := 0; i < 130; i++ {
		if got, want := b.At(i), i%3 == 0; got != want {
			t.Errorf("At(%d) == %v, want %v", i, got, want)
		}
	}
	if b.At(130) || b.At(-1) {
		t.Errorf("out of range bits read as set")
	}
	if got := b.Ones(); got != 44 {
		t.Errorf("Ones() == %d, want 44", got)
	}
}

func TestFilter(t *testing.T) {
	tcs := []struct {
		name string
		data string
		mask string
		want string
	}{
		{"all", "101", "111", "101"},
		{"some", "10100011", "11111100", "101000"},
		{"none", "10100011 111", "00000000 000", ""},
		{"short mask", "1111", "01", "1"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got := mustParse(t, tc.data).Filter(mustParse(t, tc.mask))
			if got.String() != tc.want {
				t.Errorf("Filter(%s, %s) == %v, want %s", tc.data, tc.mask, got, tc.want)
			}
		})
	}
}

func TestHead(t *testing.T) {
	long := mustParse(t, "1011111101"+"1111111111"+"1111111111"+"1111111111"+"1111111111"+"1111111111"+"1111"+"101010")
	tcs := []struct {
		name string
		data Bits
		n    int
		want string
	}{
		{"empty", mustParse(t, "1011"), 0, ""},
		{"partial", mustParse(t, "1011 1111 01"), 5, "10111"},
		{"whole", mustParse(t, "1011 1111 01"), 10, "1011111101"},
		{"word boundary", long, 64, long.String()[:64]},
		{"spanning words", long, 66, long.String()[:66]},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.data.Head(tc.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tc.want {
				t.Errorf("Head(%d) == %v, want %s", tc.n, got, tc.want)
			}
			if got.Ones() != mustParse(t, tc.want).Ones() {
				t.Errorf("Head(%d) kept bits past its length", tc.n)
			}
		})
	}

	if _, err := mustParse(t, "101").Head(4); err == nil {
		t.Errorf("Head past the end did not fail")
	}
}

func TestDistance(t *testing.T) {
	tcs := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "1010", "1010", 0},
		{"disjoint", "1010 1010 1", "0101 0101 0", 9},
		{"ragged", "11", "1010 1010 1", 5},
		{"empty", "", "", 0},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			a, b := mustParse(t, tc.a), mustParse(t, tc.b)
			if got := Distance(a, b); got != tc.want {
				t.Errorf("Distance(%s, %s) == %d, want %d", tc.a, tc.b, got, tc.want)
			}
			if got := Distance(b, a); got != tc.want {
				t.Errorf("Distance(%s, %s) == %d, want %d", tc.b, tc.a, got, tc.want)
			}
		})
	}
}
