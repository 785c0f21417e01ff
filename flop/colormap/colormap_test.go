// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package colormap

import "testing"

func TestEntriesLength(t *testing.T) {
	for _, n := range []Name{Viridis, Inferno, Magma, Plasma} {
		e := Entries(n)
		if len(e) != 256 {
			t.Errorf("Entries(%d): len\nhave %d\nwant 256", n, len(e))
		}
	}
}

func TestEntriesInRange(t *testing.T) {
	for _, n := range []Name{Viridis, Inferno, Magma, Plasma} {
		e := Entries(n)
		for i, rgb := range e {
			for c, v := range rgb {
				if v < 0 || v > 1 {
					t.Fatalf("Entries(%d)[%d][%d]\nhave %v\nwant value in [0, 1]", n, i, c, v)
				}
			}
		}
	}
}

func TestEntriesUnknownDefaultsToViridis(t *testing.T) {
	want := Entries(Viridis)
	got := Entries(Name(99))
	if got != want {
		t.Error("Entries(<unknown>) did not default to Viridis")
	}
}

func TestBuildEndpointsMatchAnchors(t *testing.T) {
	e := Entries(Viridis)
	if e[0] != viridisAnchors[0] {
		t.Errorf("Entries(Viridis)[0]\nhave %v\nwant %v", e[0], viridisAnchors[0])
	}
	last := len(viridisAnchors) - 1
	if e[255] != viridisAnchors[last] {
		t.Errorf("Entries(Viridis)[255]\nhave %v\nwant %v", e[255], viridisAnchors[last])
	}
}

func TestBuildDeterministic(t *testing.T) {
	// build must be deterministic: two calls produce identical tables.
	a := Entries(Magma)
	b := Entries(Magma)
	if a != b {
		t.Error("Entries(Magma) is not deterministic across calls")
	}
}
