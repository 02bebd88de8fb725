package document

import "strconv"

const (
	DefaultWidth  = 100
	DefaultHeight = 100
)

// Empty returns a blank document: an svg root with a viewBox covering
// width x height user units and no children. It is the safe default when
// imported or generated markup cannot be parsed.
func Empty(width, height float64) *Node {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	w := strconv.FormatFloat(width, 'f', -1, 64)
	h := strconv.FormatFloat(height, 'f', -1, 64)
	return New("svg", map[string]string{
		"xmlns":   "http://www.w3.org/2000/svg",
		"viewBox": "0 0 " + w + " " + h,
		"width":   w,
		"height":  h,
	})
}
