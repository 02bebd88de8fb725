package document

import (
	"maps"
	"strconv"
	"strings"

	"github.com/pictoforge/pictoforge/backend-go/internal/typeid"
)

type NodeType string

const (
	NodeTypeGroup   NodeType = "group"
	NodeTypeCircle  NodeType = "circle"
	NodeTypeRect    NodeType = "rect"
	NodeTypePath    NodeType = "path"
	NodeTypeLine    NodeType = "line"
	NodeTypePolygon NodeType = "polygon"
	NodeTypeEllipse NodeType = "ellipse"
	NodeTypeText    NodeType = "text"
	NodeTypeDefs    NodeType = "defs"
	NodeTypeStyle   NodeType = "style"
	NodeTypeSVG     NodeType = "svg"
	// NodeTypeOther marks an element the editor preserves but cannot edit.
	NodeTypeOther NodeType = "other"
)

var tagTypes = map[string]NodeType{
	"g":       NodeTypeGroup,
	"circle":  NodeTypeCircle,
	"rect":    NodeTypeRect,
	"path":    NodeTypePath,
	"line":    NodeTypeLine,
	"polygon": NodeTypePolygon,
	"ellipse": NodeTypeEllipse,
	"text":    NodeTypeText,
	"defs":    NodeTypeDefs,
	"style":   NodeTypeStyle,
	"svg":     NodeTypeSVG,
}

// NodeTypeOf classifies an element name. Prefixed names are classified by
// their local part.
func NodeTypeOf(tag string) NodeType {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		tag = tag[i+1:]
	}
	if t, ok := tagTypes[tag]; ok {
		return t
	}
	return NodeTypeOther
}

// IsContainer reports whether nodes of this type hold drawable children.
func (t NodeType) IsContainer() bool {
	return t == NodeTypeGroup || t == NodeTypeSVG || t == NodeTypeDefs
}

// Node is one SVG element. Nodes reachable from a document root are never
// modified in place; the tree functions in this package return new roots
// that share every untouched subtree with the old one.
type Node struct {
	ID       string            `json:"id"`
	Type     NodeType          `json:"type"`
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs"`
	Children []*Node           `json:"children,omitempty"`
	Text     string            `json:"text,omitempty"`
	// Tail is character data between this element's end tag and the next
	// sibling, as in <text>a <tspan>b</tspan> c</text>.
	Tail string `json:"tail,omitempty"`
}

// New creates a detached node with a fresh id. The id attribute, if present
// in attrs, is ignored.
func New(tag string, attrs map[string]string) *Node {
	a := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if k != "id" {
			a[k] = v
		}
	}
	return &Node{
		ID:    typeid.NewNodeID(),
		Type:  NodeTypeOf(tag),
		Tag:   tag,
		Attrs: a,
	}
}

func (n *Node) Attr(name string) string {
	return n.Attrs[name]
}

// Float parses a numeric attribute. A trailing "px" unit is accepted.
func (n *Node) Float(name string) (float64, bool) {
	s := strings.TrimSpace(n.Attrs[name])
	s = strings.TrimSuffix(s, "px")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// shallow copies n with its own attribute map and child slice.
func (n *Node) shallow() *Node {
	cp := *n
	cp.Attrs = maps.Clone(n.Attrs)
	if cp.Attrs == nil {
		cp.Attrs = map[string]string{}
	}
	if n.Children != nil {
		cp.Children = append([]*Node(nil), n.Children...)
	}
	return &cp
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := n.shallow()
	for i, c := range cp.Children {
		cp.Children[i] = c.Clone()
	}
	return cp
}
