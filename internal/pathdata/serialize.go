package pathdata

import (
	"strconv"
	"strings"
)

// Serialize writes p as absolute M, L, C and Z commands. Numbers use the
// shortest decimal form that parses back to the same float64, so
// Parse(Serialize(p)) reproduces p exactly.
func Serialize(p Path) string {
	var sb strings.Builder
	for i, c := range p {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(c.Kind.Letter())
		switch c.Kind {
		case MoveTo, LineTo:
			writePoint(&sb, c.To)
		case CubicTo:
			writePoint(&sb, c.C1)
			sb.WriteByte(' ')
			writePoint(&sb, c.C2)
			sb.WriteByte(' ')
			writePoint(&sb, c.To)
		}
	}
	return sb.String()
}

func writePoint(sb *strings.Builder, p Point) {
	sb.WriteString(FormatNumber(p.X))
	sb.WriteByte(',')
	sb.WriteString(FormatNumber(p.Y))
}

// FormatNumber formats v without an exponent and without a negative zero.
func FormatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
