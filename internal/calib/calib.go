// Package calib implements the linear raw-device-to-screen-pixel
// transform, including the swap/invert combinations and the
// clamp-to-screen invariant.
package calib

// Params describes the raw device coordinate space and the axis swap/invert
// flags read from the device's calibration properties.
type Params struct {
	MinX, MaxX float64
	MinY, MaxY float64

	SwapX    bool
	SwapY    bool
	SwapAxes bool
}

// Transform holds Params plus the derived per-axis scale factors and the
// current screen size those factors are relative to.
type Transform struct {
	params Params

	screenW, screenH float64
	factorX, factorY float64
}

// NewTransform builds a Transform for the given screen size, deriving
// factors from params immediately.
func NewTransform(params Params, screenW, screenH int) *Transform {
	t := &Transform{screenW: float64(screenW), screenH: float64(screenH)}
	t.SetCalibration(params)
	return t
}

// SetCalibration installs new raw-space parameters and recomputes the
// derived factors against the current screen size. Call this on a
// calibration reload.
func (t *Transform) SetCalibration(params Params) {
	t.params = params
	t.recompute()
}

// SetScreenSize installs a new screen size (from an X screen-change
// notification) and recomputes the derived factors.
func (t *Transform) SetScreenSize(w, h int) {
	t.screenW, t.screenH = float64(w), float64(h)
	t.recompute()
}

func (t *Transform) recompute() {
	t.factorX = factor(t.screenW, t.params.MaxX-t.params.MinX)
	t.factorY = factor(t.screenH, t.params.MaxY-t.params.MinY)
}

func factor(screenSpan, rawSpan float64) float64 {
	if rawSpan == 0 {
		return 1.0
	}
	return screenSpan / rawSpan
}

// ScreenSize returns the screen size this transform currently targets.
func (t *Transform) ScreenSize() (w, h int) {
	return int(t.screenW), int(t.screenH)
}

// Apply maps raw device coordinates (rx, ry) to clamped screen pixels,
// applying the swapAxes/swapX/swapY rules in turn.
func (t *Transform) Apply(rx, ry float64) (x, y float64) {
	p := t.params
	if p.SwapAxes {
		x = (ry - p.MinX) * t.factorX
		y = (rx - p.MinY) * t.factorY
	} else {
		x = (rx - p.MinX) * t.factorX
		y = (ry - p.MinY) * t.factorY
	}
	if p.SwapX {
		x = t.screenW - x
	}
	if p.SwapY {
		y = t.screenH - y
	}
	return clamp(x, 0, t.screenW), clamp(y, 0, t.screenH)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
