package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/pictoforge/pictoforge/backend-go/internal/typeid"
)

var ErrParse = errors.New("invalid svg markup")

// ParseError reports malformed markup. It matches ErrParse.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("svg markup line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

func parseErr(line int, format string, args ...any) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func FromMarkup(markup string) (*Node, error) {
	return Decode(strings.NewReader(markup))
}

// FromMarkupOrEmpty parses markup and falls back to an empty document of
// the given size when it is malformed. The parse error is still returned so
// the caller can surface it.
func FromMarkupOrEmpty(markup string, width, height float64) (*Node, error) {
	root, err := FromMarkup(markup)
	if err != nil {
		return Empty(width, height), err
	}
	return root, nil
}

// Decode reads one svg document. Elements keep their names and attribute
// keys exactly as written, namespace prefixes included. Elements without an
// id, or whose id repeats an earlier one, are given a generated id.
// Character data before an element's first child goes to its Text; data
// after a child goes to that child's Tail, so mixed content keeps its order.
// Whitespace-only runs are dropped outside <text> elements.
func Decode(r io.Reader) (*Node, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = true
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	var root *Node
	var stack []*Node
	seen := make(map[string]bool)

	for {
		tok, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return nil, &ParseError{Line: se.Line, Msg: se.Msg}
			}
			line, _ := decoder.InputPos()
			return nil, &ParseError{Line: line, Msg: err.Error()}
		}
		line, _ := decoder.InputPos()

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, parseErr(line, "element <%s> after the root element", qualified(t.Name))
			}
			n := newParsed(t)
			if n.ID == "" || seen[n.ID] {
				n.ID = typeid.NewNodeID()
			}
			seen[n.ID] = true

			if len(stack) == 0 {
				if n.Type != NodeTypeSVG {
					return nil, parseErr(line, "root element is <%s>, want <svg>", n.Tag)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			tag := qualified(t.Name)
			if len(stack) == 0 {
				return nil, parseErr(line, "unexpected </%s>", tag)
			}
			if top := stack[len(stack)-1]; top.Tag != tag {
				return nil, parseErr(line, "</%s> does not close <%s>", tag, top.Tag)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if strings.TrimSpace(string(t)) == "" && !inText(stack) {
				continue
			}
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) == "" {
					continue
				}
				return nil, parseErr(line, "text outside the root element")
			}
			top := stack[len(stack)-1]
			if k := len(top.Children); k > 0 {
				top.Children[k-1].Tail += string(t)
			} else {
				top.Text += string(t)
			}
		}
	}

	if len(stack) > 0 {
		line, _ := decoder.InputPos()
		return nil, parseErr(line, "unclosed <%s>", stack[len(stack)-1].Tag)
	}
	if root == nil {
		return nil, parseErr(0, "no svg element")
	}
	return root, nil
}

func newParsed(t xml.StartElement) *Node {
	tag := qualified(t.Name)
	n := &Node{
		Type:  NodeTypeOf(tag),
		Tag:   tag,
		Attrs: make(map[string]string, len(t.Attr)),
	}
	for _, a := range t.Attr {
		key := qualified(a.Name)
		if key == "id" {
			n.ID = a.Value
			continue
		}
		n.Attrs[key] = a.Value
	}
	return n
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")

// ToMarkup serializes the tree. Attributes are written id first, then in
// key order, so equal trees always produce identical text.
func ToMarkup(root *Node) string {
	var sb strings.Builder
	if root != nil {
		writeNode(&sb, root)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	sb.WriteByte('<')
	sb.WriteString(n.Tag)
	if n.ID != "" {
		writeAttr(sb, "id", n.ID)
	}
	for _, k := range slices.Sorted(maps.Keys(n.Attrs)) {
		if k == "id" {
			continue
		}
		writeAttr(sb, k, n.Attrs[k])
	}
	if len(n.Children) == 0 && n.Text == "" {
		sb.WriteString("/>")
		return
	}
	sb.WriteByte('>')
	sb.WriteString(textEscaper.Replace(n.Text))
	for _, c := range n.Children {
		writeNode(sb, c)
		sb.WriteString(textEscaper.Replace(c.Tail))
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteByte('>')
}

// inText reports whether the innermost open elements include a <text>,
// where whitespace between runs is rendered.
func inText(stack []*Node) bool {
	for _, n := range stack {
		if n.Type == NodeTypeText {
			return true
		}
	}
	return false
}

func writeAttr(sb *strings.Builder, key, value string) {
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteString(`="`)
	_ = xml.EscapeText(sb, []byte(value))
	sb.WriteByte('"')
}
