package pathdata

import (
	"errors"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	p, err := Parse("M0,0 L10,0 L10,10 Z")
	require.NoError(t, err)
	assert.Equal(t, Path{
		{Kind: MoveTo, To: Point{0, 0}},
		{Kind: LineTo, To: Point{10, 0}},
		{Kind: LineTo, To: Point{10, 10}},
		{Kind: Close},
	}, p)
	assert.Equal(t, "M0,0 L10,0 L10,10 Z", p.String())
}

func TestVerticesInOrder(t *testing.T) {
	p := MustParse("M0,0 L10,0 L10,10 Z")
	var got []Vertex
	for v := range p.Vertices() {
		got = append(got, v)
	}
	assert.Equal(t, []Vertex{{0, 0, 0}, {10, 0, 1}, {10, 10, 2}}, got)

	// the sequence is restartable and reflects later mutation
	require.NoError(t, p.SetEndpoint(1, 5, 5))
	again := slices.Collect(p.Vertices())
	assert.Equal(t, Vertex{5, 5, 1}, again[1])
}

func TestVerticesIncludeCubicEndpointsOnly(t *testing.T) {
	p := MustParse("M0 0 C 1 2 3 4 5 6 L7 8")
	got := slices.Collect(p.Vertices())
	assert.Equal(t, []Vertex{{0, 0, 0}, {5, 6, 1}, {7, 8, 2}}, got)
}

func TestParseNormalizes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"relative", "m1,1 l2,0 l0,2 z", "M1,1 L3,1 L3,3 Z"},
		{"implicit lineto", "M0 0 10 0 10 10", "M0,0 L10,0 L10,10"},
		{"implicit relative lineto", "m5 5 1 1", "M5,5 L6,6"},
		{"horizontal vertical", "M1 1 H5 V7 h-1 v-1", "M1,1 L5,1 L5,7 L4,7 L4,6"},
		{"compact numbers", "M.5.5L-1-2", "M0.5,0.5 L-1,-2"},
		{"exponent", "M1e1,2E-1", "M10,0.2"},
		{"smooth cubic", "M0 0 C0 10 10 10 10 0 S20 -10 20 0", "M0,0 C0,10 10,10 10,0 C10,-10 20,-10 20,0"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Serialize(p))
		})
	}
}

func TestParseQuadratic(t *testing.T) {
	p, err := Parse("M0 0 Q3 3 6 0 T12 0")
	require.NoError(t, err)
	require.Len(t, p, 3)
	want := []Point{{2, 2}, {4, 2}, {6, 0}, {8, -2}, {10, -2}, {12, 0}}
	got := []Point{p[1].C1, p[1].C2, p[1].To, p[2].C1, p[2].C2, p[2].To}
	for i := range want {
		assert.InDelta(t, want[i].X, got[i].X, 1e-12)
		assert.InDelta(t, want[i].Y, got[i].Y, 1e-12)
	}
}

func TestParseArc(t *testing.T) {
	// half circle of radius 10 from (0,0) to (20,0)
	p, err := Parse("M0 0 A10 10 0 0 1 20 0")
	require.NoError(t, err)
	require.Len(t, p, 3)
	for _, c := range p[1:] {
		assert.Equal(t, CubicTo, c.Kind)
	}
	assert.Equal(t, Point{20, 0}, p[2].To)
	// midpoint of the arc sits on the circle, above the chord for sweep=1
	// in SVG's y-down space that is y = -10
	assert.InDelta(t, 10, p[1].To.X, 1e-9)
	assert.InDelta(t, -10, p[1].To.Y, 1e-9)

	zero, err := Parse("M0 0 A0 5 0 0 1 4 4")
	require.NoError(t, err)
	assert.Equal(t, "M0,0 L4,4", zero.String())
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"L1 1",                // must start with moveto
		"M0 0 X1 1",           // unknown letter
		"M0 0 L1",             // missing operand
		"M0 0 C1 2 3 4",       // partial cubic
		"10 10",               // no command
		"M0 0 Z 5",            // operand after closepath
		"M0 0 A1 1 0 2 0 3 3", // bad flag
		"M0 0 L1 #",
	}
	for _, in := range tests {
		_, err := Parse(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, ErrMalformedPath, in)
		var mpe *MalformedPathError
		assert.True(t, errors.As(err, &mpe), in)
	}
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pt := func() Point {
		return Point{rng.NormFloat64() * 1000, rng.Float64()*1e-3 - 5e-4}
	}
	for n := 0; n < 200; n++ {
		p := Path{{Kind: MoveTo, To: pt()}}
		for k := 0; k < 1+rng.Intn(8); k++ {
			switch rng.Intn(4) {
			case 0:
				p = append(p, Command{Kind: LineTo, To: pt()})
			case 1:
				p = append(p, Command{Kind: CubicTo, C1: pt(), C2: pt(), To: pt()})
			case 2:
				p = append(p, Command{Kind: Close})
			case 3:
				p = append(p, Command{Kind: MoveTo, To: pt()})
			}
		}
		got, err := Parse(Serialize(p))
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
}

func TestSetEndpointAndControl(t *testing.T) {
	p := MustParse("M0 0 C1 1 2 2 3 3 L4 4 Z")

	require.NoError(t, p.SetEndpoint(1, 30, 30))
	assert.Equal(t, Command{Kind: CubicTo, C1: Point{1, 1}, C2: Point{2, 2}, To: Point{30, 30}}, p[1])

	require.NoError(t, p.SetControlPoint(1, 2, 9, 9))
	assert.Equal(t, Point{9, 9}, p[1].C2)

	assert.ErrorIs(t, p.SetEndpoint(9, 0, 0), ErrIndexOutOfRange)
	assert.ErrorIs(t, p.SetEndpoint(-1, 0, 0), ErrIndexOutOfRange)
	assert.ErrorIs(t, p.SetEndpoint(3, 0, 0), ErrNoEndpoint)
	assert.ErrorIs(t, p.SetControlPoint(2, 1, 0, 0), ErrNotABezier)
	assert.ErrorIs(t, p.SetControlPoint(1, 3, 0, 0), ErrInvalidSlot)
	assert.ErrorIs(t, p.SetControlPoint(7, 1, 0, 0), ErrIndexOutOfRange)
}

func TestBounds(t *testing.T) {
	_, _, _, _, ok := Path(nil).Bounds()
	assert.False(t, ok)

	minX, minY, maxX, maxY, ok := MustParse("M0,0 L10,0 L10,10 Z").Bounds()
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 10, 10}, []float64{minX, minY, maxX, maxY})

	// cubic bulging above its endpoints: the peak is at y = 7.5
	minX, minY, maxX, maxY, ok = MustParse("M0 0 C0 10 10 10 10 0").Bounds()
	require.True(t, ok)
	assert.InDelta(t, 0, minX, 1e-12)
	assert.InDelta(t, 0, minY, 1e-12)
	assert.InDelta(t, 10, maxX, 1e-12)
	assert.InDelta(t, 7.5, maxY, 1e-12)
}

func TestClosestPoint(t *testing.T) {
	p := MustParse("M0,0 L10,0 L10,10 Z")
	hit, ok := p.ClosestPoint(4, -3)
	require.True(t, ok)
	assert.Equal(t, 1, hit.Index)
	assert.InDelta(t, 0.4, hit.T, 1e-6)
	assert.InDelta(t, 3, hit.Distance, 1e-6)

	// closing segment from (10,10) back to (0,0)
	hit, ok = p.ClosestPoint(3, 4)
	require.True(t, ok)
	assert.Equal(t, 3, hit.Index)
	assert.InDelta(t, 3.5, hit.Point.X, 1e-6)
	assert.InDelta(t, 3.5, hit.Point.Y, 1e-6)

	curve := MustParse("M0 0 C0 10 10 10 10 0")
	hit, ok = curve.ClosestPoint(5, 20)
	require.True(t, ok)
	assert.InDelta(t, 0.5, hit.T, 1e-6)
	assert.InDelta(t, 12.5, hit.Distance, 1e-6)

	_, ok = MustParse("M1 1").ClosestPoint(0, 0)
	assert.False(t, ok)
}

func TestInsertNode(t *testing.T) {
	p := MustParse("M0,0 L10,0 L10,10 Z")

	line, err := p.InsertNode(1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "M0,0 L5,0 L10,0 L10,10 Z", line.String())
	// original untouched
	assert.Equal(t, "M0,0 L10,0 L10,10 Z", p.String())

	closed, err := p.InsertNode(3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "M0,0 L10,0 L10,10 L5,5 Z", closed.String())

	curve := MustParse("M0 0 C0 10 10 10 10 0")
	split, err := curve.InsertNode(1, 0.5)
	require.NoError(t, err)
	require.Len(t, split, 3)
	assert.InDelta(t, 5, split[1].To.X, 1e-12)
	assert.InDelta(t, 7.5, split[1].To.Y, 1e-12)
	// the split halves trace the same curve
	for _, tt := range []float64{0.1, 0.3, 0.7, 0.9} {
		var orig, half segment
		curve.segments(func(s segment) bool { orig = s; return false })
		want := orig.at(tt)
		var segs []segment
		split.segments(func(s segment) bool { segs = append(segs, s); return true })
		if tt < 0.5 {
			half = segs[0]
			got := half.at(tt * 2)
			assert.InDelta(t, want.X, got.X, 1e-9)
			assert.InDelta(t, want.Y, got.Y, 1e-9)
		} else {
			half = segs[1]
			got := half.at(tt*2 - 1)
			assert.InDelta(t, want.X, got.X, 1e-9)
			assert.InDelta(t, want.Y, got.Y, 1e-9)
		}
	}

	_, err = p.InsertNode(0, 0.5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = p.InsertNode(1, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// the closepath already ends on the subpath start
	_, err = MustParse("M0,0 L10,0 L0,0 Z").InsertNode(3, 0.5)
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestRemoveNode(t *testing.T) {
	p := MustParse("M0,0 L10,0 L10,10 Z")

	out, err := p.RemoveNode(1)
	require.NoError(t, err)
	assert.Equal(t, "M0,0 L10,10 Z", out.String())

	out, err = p.RemoveNode(0)
	require.NoError(t, err)
	assert.Equal(t, "M10,0 L10,10 Z", out.String())

	_, err = p.RemoveNode(3)
	assert.ErrorIs(t, err, ErrNoEndpoint)

	tests := []struct {
		name  string
		d     string
		index int
		want  string
	}{
		{"moveto then close then line", "M0,0 Z L5,5", 0, "M5,5"},
		{"moveto then close then curve", "M0,0 Z C1,1 2,2 3,3 L4,4", 0, "M3,3 L4,4"},
		{"lone closed moveto", "M0,0 Z M5,5 L6,6", 0, "M5,5 L6,6"},
		{"second subpath moveto", "M0,0 L1,1 M5,5 L6,6 Z", 2, "M0,0 L1,1 M6,6 Z"},
		{"only command", "M3,3", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MustParse(tt.d).RemoveNode(tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
			if len(out) == 0 {
				return
			}
			assert.Equal(t, MoveTo, out[0].Kind)
			reparsed, err := Parse(out.String())
			require.NoError(t, err)
			assert.Equal(t, out, reparsed)
		})
	}
}

func TestTransform(t *testing.T) {
	p := MustParse("M1 2 C3 4 5 6 7 8 Z")
	moved := p.Transform(func(q Point) Point { return Point{q.X + 1, q.Y * 2} })
	assert.Equal(t, "M2,4 C4,8 6,12 8,16 Z", moved.String())
	assert.Equal(t, "M1,2 C3,4 5,6 7,8 Z", p.String())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(math.Copysign(0, -1)))
	assert.Equal(t, "0.1", FormatNumber(0.1))
	assert.Equal(t, "-12.25", FormatNumber(-12.25))
}
