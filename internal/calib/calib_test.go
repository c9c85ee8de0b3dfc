package calib

import "testing"

func TestApplyIdentityWithinRangeStaysInBounds(t *testing.T) {
	tr := NewTransform(Params{MinX: 0, MaxX: 1000, MinY: 0, MaxY: 1000}, 1000, 1000)
	x, y := tr.Apply(500, 250)
	if x != 500 || y != 250 {
		t.Fatalf("got (%v,%v), want (500,250)", x, y)
	}
}

func TestApplyClampsOutOfRangeInputs(t *testing.T) {
	tr := NewTransform(Params{MinX: 0, MaxX: 1000, MinY: 0, MaxY: 1000}, 800, 600)
	x, y := tr.Apply(-500, 5000)
	if x != 0 || y != 600 {
		t.Fatalf("got (%v,%v), want (0,600)", x, y)
	}
}

func TestApplySwapAxes(t *testing.T) {
	tr := NewTransform(Params{MinX: 0, MaxX: 1000, MinY: 0, MaxY: 2000, SwapAxes: true}, 1000, 2000)
	x, y := tr.Apply(100, 900)
	// swapAxes: x = (ry-minX)*factorX, y = (rx-minY)*factorY
	wantX := (900.0 - 0) * (1000.0 / 1000.0)
	wantY := (100.0 - 0) * (2000.0 / 2000.0)
	if x != wantX || y != wantY {
		t.Fatalf("got (%v,%v), want (%v,%v)", x, y, wantX, wantY)
	}
}

func TestApplyInvertCorners(t *testing.T) {
	tr := NewTransform(Params{MinX: 0, MaxX: 1000, MinY: 0, MaxY: 1000, SwapX: true, SwapY: true}, 1000, 1000)
	x, y := tr.Apply(0, 0)
	if x != 1000 || y != 1000 {
		t.Fatalf("got (%v,%v), want (1000,1000)", x, y)
	}
	x, y = tr.Apply(1000, 1000)
	if x != 0 || y != 0 {
		t.Fatalf("got (%v,%v), want (0,0)", x, y)
	}
}

func TestZeroSpanFallsBackToUnitFactor(t *testing.T) {
	tr := NewTransform(Params{MinX: 5, MaxX: 5, MinY: 0, MaxY: 1000}, 800, 600)
	x, _ := tr.Apply(5, 0)
	// factorX falls back to 1.0, so x = (5-5)*1 = 0, still within bounds.
	if x != 0 {
		t.Fatalf("got x=%v, want 0", x)
	}
}

func TestSetScreenSizeRecomputesFactors(t *testing.T) {
	tr := NewTransform(Params{MinX: 0, MaxX: 1000, MinY: 0, MaxY: 1000}, 1000, 1000)
	tr.SetScreenSize(2000, 500)
	x, y := tr.Apply(1000, 1000)
	if x != 2000 || y != 500 {
		t.Fatalf("got (%v,%v), want (2000,500)", x, y)
	}
}
