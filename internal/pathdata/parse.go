package pathdata

import (
	"math"
	"strconv"

	tstrconv "github.com/tdewolff/parse/v2/strconv"
)

// operand counts per upper-case command letter
var arity = map[byte]int{
	'M': 2, 'L': 2, 'H': 1, 'V': 1,
	'C': 6, 'S': 4, 'Q': 4, 'T': 2,
	'A': 7, 'Z': 0,
}

func skipCommaWhitespace(b []byte) int {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == ',' || b[i] == '\n' || b[i] == '\r' || b[i] == '\t' || b[i] == '\f') {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func upper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// parseNumber scans one number at the start of b. The tdewolff scanner finds
// the extent of the literal (it splits "1.5.5" and "-1-2" the way SVG
// requires); the value itself goes through strconv so it is correctly
// rounded and serialized numbers read back bit-exact.
func parseNumber(b []byte) (float64, int, bool) {
	_, n := tstrconv.ParseFloat(b)
	if n == 0 {
		return 0, 0, false
	}
	v, err := strconv.ParseFloat(string(b[:n]), 64)
	if err != nil {
		return 0, 0, false
	}
	return v, n, true
}

// Parse reads SVG path data into a normalized Path. An empty or
// whitespace-only string yields an empty path.
func Parse(d string) (Path, error) {
	b := []byte(d)
	var p Path

	var cur, start Point
	var lastCubicCtrl, lastQuadCtrl Point
	var prev byte // upper-case letter of the previous command
	var cmd byte

	i := skipCommaWhitespace(b)
	for i < len(b) {
		pos := i
		if isLetter(b[i]) {
			cmd = b[i]
			i++
		} else if cmd == 0 {
			return nil, malformed(pos, 0, "expected a command letter")
		} else if upper(cmd) == 'Z' {
			return nil, malformed(pos, cmd, "unexpected operand after closepath")
		}

		up := upper(cmd)
		n, ok := arity[up]
		if !ok {
			return nil, malformed(pos, cmd, "unsupported command")
		}
		if len(p) == 0 && up != 'M' {
			return nil, malformed(pos, cmd, "path must begin with a moveto")
		}

		var f [7]float64
		for j := 0; j < n; j++ {
			i += skipCommaWhitespace(b[i:])
			if up == 'A' && (j == 3 || j == 4) {
				if i < len(b) && (b[i] == '0' || b[i] == '1') {
					f[j] = float64(b[i] - '0')
					i++
					continue
				}
				return nil, malformed(i, cmd, "arc flags must be 0 or 1")
			}
			v, m, ok := parseNumber(b[i:])
			if !ok {
				return nil, malformed(i, cmd, "expected %d operands, got %d", n, j)
			}
			f[j] = v
			i += m
		}
		i += skipCommaWhitespace(b[i:])

		rel := cmd != up
		abs := func(x, y float64) Point {
			if rel {
				return Point{cur.X + x, cur.Y + y}
			}
			return Point{x, y}
		}

		switch up {
		case 'M':
			cur = abs(f[0], f[1])
			start = cur
			p = append(p, Command{Kind: MoveTo, To: cur})
			// further operand pairs are implicit linetos
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'Z':
			p = append(p, Command{Kind: Close})
			cur = start
		case 'L':
			cur = abs(f[0], f[1])
			p = append(p, Command{Kind: LineTo, To: cur})
		case 'H':
			x := f[0]
			if rel {
				x += cur.X
			}
			cur = Point{x, cur.Y}
			p = append(p, Command{Kind: LineTo, To: cur})
		case 'V':
			y := f[0]
			if rel {
				y += cur.Y
			}
			cur = Point{cur.X, y}
			p = append(p, Command{Kind: LineTo, To: cur})
		case 'C':
			c1, c2, to := abs(f[0], f[1]), abs(f[2], f[3]), abs(f[4], f[5])
			p = append(p, Command{Kind: CubicTo, C1: c1, C2: c2, To: to})
			lastCubicCtrl, cur = c2, to
		case 'S':
			c1 := cur
			if prev == 'C' || prev == 'S' {
				c1 = Point{2*cur.X - lastCubicCtrl.X, 2*cur.Y - lastCubicCtrl.Y}
			}
			c2, to := abs(f[0], f[1]), abs(f[2], f[3])
			p = append(p, Command{Kind: CubicTo, C1: c1, C2: c2, To: to})
			lastCubicCtrl, cur = c2, to
		case 'Q':
			q, to := abs(f[0], f[1]), abs(f[2], f[3])
			p = append(p, quadToCubic(cur, q, to))
			lastQuadCtrl, cur = q, to
		case 'T':
			q := cur
			if prev == 'Q' || prev == 'T' {
				q = Point{2*cur.X - lastQuadCtrl.X, 2*cur.Y - lastQuadCtrl.Y}
			}
			to := abs(f[0], f[1])
			p = append(p, quadToCubic(cur, q, to))
			lastQuadCtrl, cur = q, to
		case 'A':
			to := abs(f[5], f[6])
			p = append(p, arcToCubics(cur, f[0], f[1], f[2], f[3] != 0, f[4] != 0, to)...)
			cur = to
		}
		prev = up
	}
	return p, nil
}

// MustParse is like Parse but panics on malformed input. It is meant for
// literals in tests and defaults.
func MustParse(d string) Path {
	p, err := Parse(d)
	if err != nil {
		panic(err)
	}
	return p
}

// quadToCubic elevates a quadratic bezier to the identical cubic.
func quadToCubic(p0, q, p1 Point) Command {
	return Command{
		Kind: CubicTo,
		C1:   p0.Lerp(q, 2.0/3.0),
		C2:   p1.Lerp(q, 2.0/3.0),
		To:   p1,
	}
}

// arcToCubics converts an endpoint-parameterized elliptical arc into cubic
// segments of at most a quarter turn each.
func arcToCubics(p0 Point, rx, ry, rotDeg float64, large, sweep bool, p1 Point) []Command {
	if p0 == p1 {
		return nil
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		return []Command{{Kind: LineTo, To: p1}}
	}

	sinPhi, cosPhi := math.Sincos(rotDeg * math.Pi / 180)
	dx2, dy2 := (p0.X-p1.X)/2, (p0.Y-p1.Y)/2
	x1p := cosPhi*dx2 + sinPhi*dy2
	y1p := -sinPhi*dx2 + cosPhi*dy2

	// scale radii up if they cannot span the endpoints
	if lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry); lambda > 1 {
		s := math.Sqrt(lambda)
		rx, ry = rx*s, ry*s
	}

	rx2, ry2 := rx*rx, ry*ry
	num := rx2*ry2 - rx2*y1p*y1p - ry2*x1p*x1p
	den := rx2*y1p*y1p + ry2*x1p*x1p
	coef := 0.0
	if num > 0 && den > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx
	cx := cosPhi*cxp - sinPhi*cyp + (p0.X+p1.X)/2
	cy := sinPhi*cxp + cosPhi*cyp + (p0.Y+p1.Y)/2

	ux, uy := (x1p-cxp)/rx, (y1p-cyp)/ry
	vx, vy := (-x1p-cxp)/rx, (-y1p-cyp)/ry
	theta := vecAngle(1, 0, ux, uy)
	dtheta := vecAngle(ux, uy, vx, vy)
	if !sweep && dtheta > 0 {
		dtheta -= 2 * math.Pi
	} else if sweep && dtheta < 0 {
		dtheta += 2 * math.Pi
	}

	segs := int(math.Ceil(math.Abs(dtheta)/(math.Pi/2) - 1e-9))
	if segs < 1 {
		segs = 1
	}
	delta := dtheta / float64(segs)
	k := 4.0 / 3.0 * math.Tan(delta/4)

	onEllipse := func(x, y float64) Point {
		x, y = x*rx, y*ry
		return Point{cosPhi*x - sinPhi*y + cx, sinPhi*x + cosPhi*y + cy}
	}

	out := make([]Command, 0, segs)
	for s := 0; s < segs; s++ {
		sin1, cos1 := math.Sincos(theta)
		sin2, cos2 := math.Sincos(theta + delta)
		to := onEllipse(cos2, sin2)
		if s == segs-1 {
			to = p1
		}
		out = append(out, Command{
			Kind: CubicTo,
			C1:   onEllipse(cos1-k*sin1, sin1+k*cos1),
			C2:   onEllipse(cos2+k*sin2, sin2-k*cos2),
			To:   to,
		})
		theta += delta
	}
	return out
}

func vecAngle(ux, uy, vx, vy float64) float64 {
	return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
}
