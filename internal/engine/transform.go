package engine

import (
	"errors"
	"fmt"
	"strings"

	tstrconv "github.com/tdewolff/parse/v2/strconv"
)

var ErrInvalidTransform = errors.New("invalid transform attribute")

// ParseTransform parses an SVG transform list such as
// "translate(10 20) rotate(45, 5, 5)". The functions compose left to right
// the way SVG applies them: the rightmost acts on the element first. An
// empty string is the identity.
func ParseTransform(v string) (Matrix2D, error) {
	m := Identity()
	rest := strings.TrimSpace(v)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')
		if open <= 0 || closing < open {
			return Identity(), fmt.Errorf("%q: %w", v, ErrInvalidTransform)
		}
		name := strings.ToLower(strings.TrimSpace(rest[:open]))
		args, ok := numberList(rest[open+1 : closing])
		if !ok {
			return Identity(), fmt.Errorf("%q: bad arguments to %s: %w", v, name, ErrInvalidTransform)
		}
		t, err := transformFunc(name, args)
		if err != nil {
			return Identity(), fmt.Errorf("%q: %w", v, err)
		}
		m = m.Multiply(t)
		rest = strings.TrimLeft(rest[closing+1:], " \t\r\n,")
	}
	return m, nil
}

func transformFunc(name string, p []float64) (Matrix2D, error) {
	bad := fmt.Errorf("%s with %d arguments: %w", name, len(p), ErrInvalidTransform)
	switch name {
	case "matrix":
		if len(p) != 6 {
			return Identity(), bad
		}
		return Matrix2D{p[0], p[1], p[2], p[3], p[4], p[5]}, nil
	case "translate":
		switch len(p) {
		case 1:
			return Translate(p[0], 0), nil
		case 2:
			return Translate(p[0], p[1]), nil
		}
	case "scale":
		switch len(p) {
		case 1:
			return Scale(p[0], p[0]), nil
		case 2:
			return Scale(p[0], p[1]), nil
		}
	case "rotate":
		switch len(p) {
		case 1:
			return RotateDegrees(p[0]), nil
		case 3:
			return RotateAround(p[0], p[1], p[2]), nil
		}
	case "skewx":
		if len(p) == 1 {
			return SkewX(p[0]), nil
		}
	case "skewy":
		if len(p) == 1 {
			return SkewY(p[0]), nil
		}
	default:
		return Identity(), fmt.Errorf("unknown function %s: %w", name, ErrInvalidTransform)
	}
	return Identity(), bad
}

// numberList reads comma or whitespace separated numbers, as used by
// transform arguments and polygon points.
func numberList(s string) ([]float64, bool) {
	b := []byte(s)
	var out []float64
	for {
		b = trimSeparators(b)
		if len(b) == 0 {
			return out, true
		}
		f, n := tstrconv.ParseFloat(b)
		if n == 0 {
			return nil, false
		}
		out = append(out, f)
		b = b[n:]
	}
}

func trimSeparators(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == ',' || b[0] == '\t' || b[0] == '\n' || b[0] == '\r') {
		b = b[1:]
	}
	return b
}
