package engine

import (
	"github.com/pictoforge/pictoforge/backend-go/internal/document"
)

// SceneGraph is a world-space index of one document tree: every node's
// consolidated transform and world bounds, computed once per tree version.
// The engine rebuilds it whenever the document root changes.
type SceneGraph struct {
	Root      *SceneNode
	NodesByID map[string]*SceneNode
}

// SceneNode is a resolved node ready for hit testing and handle placement.
type SceneNode struct {
	ID   string
	Type document.NodeType
	Node *document.Node

	WorldTransform Matrix2D // parent world * local
	LocalTransform Matrix2D

	Visible bool

	Parent   *SceneNode
	Children []*SceneNode

	// Bounds in root user space; HasBounds is false for empty groups and
	// unmeasurable elements.
	Bounds    Bounds
	HasBounds bool
}

// BuildSceneGraph resolves the tree under root.
func BuildSceneGraph(root *document.Node, acc GeometryAccessor) *SceneGraph {
	sg := &SceneGraph{NodesByID: make(map[string]*SceneNode)}
	if root == nil {
		return sg
	}
	sg.Root = buildNode(root, nil, Identity(), true, acc, sg)
	return sg
}

func buildNode(n *document.Node, parent *SceneNode, parentWorld Matrix2D, visible bool, acc GeometryAccessor, sg *SceneGraph) *SceneNode {
	local := acc.LocalTransform(n)
	world := parentWorld.Multiply(local)
	visible = visible && rendered(n) && n.Attr("visibility") != "hidden"

	sn := &SceneNode{
		ID:             n.ID,
		Type:           n.Type,
		Node:           n,
		WorldTransform: world,
		LocalTransform: local,
		Visible:        visible,
		Parent:         parent,
	}
	if b, ok := ComputeBounds(n, acc); ok {
		sn.Bounds = ApplyAffine(b, world)
		sn.HasBounds = true
	}
	sg.NodesByID[n.ID] = sn

	for _, c := range n.Children {
		sn.Children = append(sn.Children, buildNode(c, sn, world, visible, acc, sg))
	}
	return sn
}

// HitTest returns the ID of the frontmost visible shape whose world bounds
// contain the point, or "" when nothing is hit. Containers are never hit
// themselves, only their shapes.
func HitTest(sg *SceneGraph, x, y float64) string {
	if sg == nil || sg.Root == nil {
		return ""
	}
	return hitTestNode(sg.Root, x, y)
}

// hitTestNode tests children first, last child first, since later siblings
// paint on top.
func hitTestNode(node *SceneNode, x, y float64) string {
	if node == nil || !node.Visible {
		return ""
	}
	for i := len(node.Children) - 1; i >= 0; i-- {
		if hit := hitTestNode(node.Children[i], x, y); hit != "" {
			return hit
		}
	}
	if node.Type.IsContainer() || !node.HasBounds {
		return ""
	}
	if node.Bounds.Contains(x, y) {
		return node.ID
	}
	return ""
}

// SelectionBounds returns the combined world bounds of the given IDs.
func (sg *SceneGraph) SelectionBounds(ids ...string) (Bounds, bool) {
	var out Bounds
	found := false
	for _, id := range ids {
		sn, ok := sg.NodesByID[id]
		if !ok || !sn.HasBounds {
			continue
		}
		if !found {
			out, found = sn.Bounds, true
		} else {
			out = out.Union(sn.Bounds)
		}
	}
	return out, found
}
