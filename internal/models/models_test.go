package models

import "testing"

func TestToMicrosRoundsNearest(t *testing.T) {
	cases := []struct {
		units float64
		want  int64
	}{
		{0.29, 290_000},
		{2.375, 2_375_000},
		{1.0, 1_000_000},
	}
	for _, tc := range cases {
		if got := ToMicros(tc.units); got != tc.want {
			t.Fatalf("ToMicros(%v) = %d, want %d", tc.units, got, tc.want)
		}
	}
}

func TestUnitsRoundTrip(t *testing.T) {
	for _, micros := range []int64{1, 289_999, 5_000_000_000} {
		if got := ToMicros(ToUnits(micros)); got != micros {
			t.Fatalf("round trip of %d micros came back as %d", micros, got)
		}
	}
}
