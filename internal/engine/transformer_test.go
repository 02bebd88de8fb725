package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyTransformer(t *testing.T, vb ViewBox, x, y, w, h float64) *Transformer {
	t.Helper()
	s := &StaticSurface{Box: vb, HasBox: true, X: x, Y: y, Container: Size{Width: w, Height: h}}
	tr := NewTransformer(s, 0.1, 10)
	tr.Refresh()
	require.NoError(t, tr.Ready())
	return tr
}

func TestScreenToSVGUnzoomed(t *testing.T) {
	tr := readyTransformer(t, ViewBox{0, 0, 100, 100}, 50, 50, 200, 200)

	x, y, err := tr.ScreenToSVG(150, 150)
	require.NoError(t, err)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)
}

func TestScreenToSVGZoomed(t *testing.T) {
	tr := readyTransformer(t, ViewBox{0, 0, 100, 100}, 50, 50, 200, 200)
	tr.UpdatePanZoom(PanZoom{Scale: 2})

	x, y, err := tr.ScreenToSVG(150, 150)
	require.NoError(t, err)
	assert.InDelta(t, 25, x, 1e-9)
	assert.InDelta(t, 25, y, 1e-9)
}

func TestTransformerNotReady(t *testing.T) {
	cases := map[string]*StaticSurface{
		"no viewBox":      {Container: Size{100, 100}},
		"zero width":      {Box: ViewBox{0, 0, 10, 10}, HasBox: true, Container: Size{0, 100}},
		"negative height": {Box: ViewBox{0, 0, 10, 10}, HasBox: true, Container: Size{100, -1}},
		"empty viewBox":   {Box: ViewBox{0, 0, 0, 10}, HasBox: true, Container: Size{100, 100}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			tr := NewTransformer(s, 0.1, 10)
			tr.Refresh()
			_, _, err := tr.ScreenToSVG(1, 1)
			assert.ErrorIs(t, err, ErrTransformerNotReady)
			_, _, err = tr.SVGToScreen(1, 1)
			assert.ErrorIs(t, err, ErrTransformerNotReady)
			_, _, err = tr.ScreenDeltaToSVGDelta(1, 1)
			assert.ErrorIs(t, err, ErrTransformerNotReady)
		})
	}

	// Nothing is read until the first refresh.
	tr := NewTransformer(&StaticSurface{Box: ViewBox{0, 0, 10, 10}, HasBox: true, Container: Size{10, 10}}, 0.1, 10)
	assert.ErrorIs(t, tr.Ready(), ErrTransformerNotReady)
	tr.Refresh()
	assert.NoError(t, tr.Ready())
}

func TestRefreshIsExplicit(t *testing.T) {
	s := &StaticSurface{Box: ViewBox{0, 0, 100, 100}, HasBox: true, Container: Size{100, 100}}
	tr := NewTransformer(s, 0.1, 10)
	tr.Refresh()

	s.Container = Size{200, 200}
	x, _, _ := tr.ScreenToSVG(100, 0)
	assert.InDelta(t, 100, x, 1e-9)

	tr.Refresh()
	x, _, _ = tr.ScreenToSVG(100, 0)
	assert.InDelta(t, 50, x, 1e-9)
}

func TestScreenSVGRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		vb := ViewBox{
			X:      rng.Float64()*200 - 100,
			Y:      rng.Float64()*200 - 100,
			Width:  1 + rng.Float64()*500,
			Height: 1 + rng.Float64()*500,
		}
		tr := readyTransformer(t, vb, rng.Float64()*300, rng.Float64()*300, 10+rng.Float64()*1000, 10+rng.Float64()*1000)
		tr.UpdatePanZoom(PanZoom{
			Scale:      0.1 + rng.Float64()*9.9,
			TranslateX: rng.Float64()*400 - 200,
			TranslateY: rng.Float64()*400 - 200,
		})

		px, py := rng.Float64()*2000-1000, rng.Float64()*2000-1000
		sx, sy, err := tr.ScreenToSVG(px, py)
		require.NoError(t, err)
		bx, by, err := tr.SVGToScreen(sx, sy)
		require.NoError(t, err)
		assert.InDelta(t, px, bx, 1e-6)
		assert.InDelta(t, py, by, 1e-6)

		// The delta mapping is the difference of two point mappings.
		dx, dy := rng.Float64()*100-50, rng.Float64()*100-50
		ddx, ddy, err := tr.ScreenDeltaToSVGDelta(dx, dy)
		require.NoError(t, err)
		ex, ey, _ := tr.ScreenToSVG(px+dx, py+dy)
		assert.InDelta(t, ex-sx, ddx, 1e-6)
		assert.InDelta(t, ey-sy, ddy, 1e-6)

		m, err := tr.ScreenMatrix()
		require.NoError(t, err)
		mx, my := m.TransformPoint(sx, sy)
		assert.InDelta(t, px, mx, 1e-6)
		assert.InDelta(t, py, my, 1e-6)
	}
}

func TestZoomAtKeepsPointFixed(t *testing.T) {
	tr := readyTransformer(t, ViewBox{0, 0, 100, 100}, 10, 20, 200, 200)
	before, beforeY, _ := tr.ScreenToSVG(80, 90)

	tr.ZoomAt(80, 90, 3)
	assert.InDelta(t, 3, tr.PanZoom().Scale, 1e-9)
	after, afterY, _ := tr.ScreenToSVG(80, 90)
	assert.InDelta(t, before, after, 1e-9)
	assert.InDelta(t, beforeY, afterY, 1e-9)

	tr.ZoomAt(80, 90, 1000)
	assert.Equal(t, 10.0, tr.PanZoom().Scale)
	tr.ZoomAt(80, 90, 1e-9)
	assert.Equal(t, 0.1, tr.PanZoom().Scale)
}

func TestPanBy(t *testing.T) {
	tr := readyTransformer(t, ViewBox{0, 0, 100, 100}, 0, 0, 100, 100)
	tr.PanBy(10, -5)
	x, y, _ := tr.ScreenToSVG(10, -5)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
}

func TestSVGLengthToScreen(t *testing.T) {
	tr := readyTransformer(t, ViewBox{0, 0, 100, 100}, 0, 0, 200, 200)
	tr.UpdatePanZoom(PanZoom{Scale: 1.5})
	d, err := tr.SVGLengthToScreen(10)
	require.NoError(t, err)
	assert.InDelta(t, 30, d, 1e-9)
}

func TestFitToBounds(t *testing.T) {
	tr := readyTransformer(t, ViewBox{0, 0, 100, 100}, 0, 0, 200, 200)
	b := Bounds{MinX: 20, MinY: 40, MaxX: 60, MaxY: 60}

	require.NoError(t, tr.FitToBounds(b, 10))
	first := tr.PanZoom()

	// 80x40 container px plus padding: 200/100 wins over 200/60
	assert.InDelta(t, 2, first.Scale, 1e-9)
	cx, cy, _ := tr.SVGToScreen(40, 50)
	assert.InDelta(t, 100, cx, 1e-9)
	assert.InDelta(t, 100, cy, 1e-9)

	require.NoError(t, tr.FitToBounds(b, 10))
	assert.Equal(t, first, tr.PanZoom())
}

func TestFitToBoundsZoomLimits(t *testing.T) {
	tr := readyTransformer(t, ViewBox{0, 0, 100, 100}, 0, 0, 100, 100)

	require.NoError(t, tr.FitToBounds(Bounds{MinX: 50, MinY: 50, MaxX: 50.001, MaxY: 50.001}, 0))
	assert.Equal(t, 10.0, tr.PanZoom().Scale)

	require.NoError(t, tr.FitToBounds(Bounds{MinX: -1e6, MinY: -1e6, MaxX: 1e6, MaxY: 1e6}, 0))
	assert.Equal(t, 0.1, tr.PanZoom().Scale)
	x, y, _ := tr.SVGToScreen(0, 0)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)
}

func TestFitViewToBounds(t *testing.T) {
	pz := FitViewToBounds(Bounds{0, 0, 100, 50}, Size{200, 200}, 0, 10)
	assert.InDelta(t, 2, pz.Scale, 1e-9)
	assert.InDelta(t, 0, pz.TranslateX, 1e-9)
	assert.InDelta(t, 50, pz.TranslateY, 1e-9)

	// A point has no extent, so only maxZoom limits the scale.
	pz = FitViewToBounds(Bounds{10, 10, 10, 10}, Size{200, 200}, 0, 4)
	assert.Equal(t, 4.0, pz.Scale)
}

func TestParseViewBox(t *testing.T) {
	vb, ok := ParseViewBox("0 0 100 50")
	require.True(t, ok)
	assert.Equal(t, ViewBox{0, 0, 100, 50}, vb)

	vb, ok = ParseViewBox("-10,-10, 20,20")
	require.True(t, ok)
	assert.Equal(t, ViewBox{-10, -10, 20, 20}, vb)

	for _, bad := range []string{"", "0 0 100", "0 0 0 10", "0 0 10 -1", "a b c d"} {
		_, ok := ParseViewBox(bad)
		assert.False(t, ok, bad)
	}
}
