package document

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrNotFound    = errors.New("node not found")
	ErrDuplicateID = errors.New("duplicate node id")
	ErrInvalidMove = errors.New("node cannot be moved there")
)

// Walk visits the subtree in document order. Returning false from fn skips
// the node's children.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

func FindByID(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// ParentOf returns the parent of id and the node's index among its
// siblings. The root has no parent.
func ParentOf(root *Node, id string) (*Node, int) {
	if root == nil {
		return nil, -1
	}
	for i, c := range root.Children {
		if c.ID == id {
			return root, i
		}
		if p, idx := ParentOf(c, id); p != nil {
			return p, idx
		}
	}
	return nil, -1
}

// PathTo returns the chain of nodes from root down to id, inclusive.
func PathTo(root *Node, id string) []*Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return []*Node{root}
	}
	for _, c := range root.Children {
		if p := PathTo(c, id); p != nil {
			return append([]*Node{root}, p...)
		}
	}
	return nil
}

// rewrite replaces the node with the given id by fn's result and copies
// every ancestor on the way up. A nil result removes the node.
func rewrite(n *Node, id string, fn func(*Node) *Node) (*Node, bool) {
	for i, c := range n.Children {
		if c.ID == id {
			cp := n.shallow()
			if nc := fn(c); nc != nil {
				cp.Children[i] = nc
			} else {
				cp.Children = slices.Delete(cp.Children, i, i+1)
			}
			return cp, true
		}
		if nc, ok := rewrite(c, id, fn); ok {
			cp := n.shallow()
			cp.Children[i] = nc
			return cp, true
		}
	}
	return n, false
}

// UpdateByID returns a new root in which fn has been applied to a copy of
// the node with the given id. fn may freely modify the copy's attributes,
// text and child slice; the node keeps its id. ok is false and root is
// returned unchanged when no such node exists.
func UpdateByID(root *Node, id string, fn func(n *Node)) (*Node, bool) {
	if root == nil {
		return nil, false
	}
	apply := func(n *Node) *Node {
		cp := n.shallow()
		fn(cp)
		cp.ID = n.ID
		cp.Type = NodeTypeOf(cp.Tag)
		return cp
	}
	if root.ID == id {
		return apply(root), true
	}
	return rewrite(root, id, apply)
}

// ReplaceByID swaps the node with the given id for repl, which takes over
// that id. Children of repl are used as given.
func ReplaceByID(root *Node, id string, repl *Node) (*Node, bool) {
	if root == nil || repl == nil {
		return root, false
	}
	r := *repl
	r.ID = id
	if root.ID == id {
		return &r, true
	}
	return rewrite(root, id, func(*Node) *Node { return &r })
}

// RemoveByID returns a new root without the node and its subtree. The root
// itself cannot be removed.
func RemoveByID(root *Node, id string) (*Node, bool) {
	if root == nil || root.ID == id {
		return root, false
	}
	return rewrite(root, id, func(*Node) *Node { return nil })
}

// InsertChild inserts child under the node parentID at index. An index
// outside [0, len] appends. Every id in child's subtree must be new to the
// tree.
func InsertChild(root *Node, parentID string, index int, child *Node) (*Node, error) {
	if root == nil || child == nil {
		return root, fmt.Errorf("insert into %s: %w", parentID, ErrNotFound)
	}
	if FindByID(root, parentID) == nil {
		return root, fmt.Errorf("insert into %s: %w", parentID, ErrNotFound)
	}
	var dup string
	Walk(child, func(n *Node, _ int) bool {
		if dup == "" && FindByID(root, n.ID) != nil {
			dup = n.ID
		}
		return dup == ""
	})
	if dup != "" {
		return root, fmt.Errorf("insert %s: %w", dup, ErrDuplicateID)
	}

	out, _ := UpdateByID(root, parentID, func(p *Node) {
		if index < 0 || index > len(p.Children) {
			index = len(p.Children)
		}
		p.Children = slices.Insert(p.Children, index, child)
	})
	return out, nil
}

// MoveNode detaches id and reinserts it under newParentID at index. A node
// cannot be moved into its own subtree.
func MoveNode(root *Node, id, newParentID string, index int) (*Node, error) {
	n := FindByID(root, id)
	if n == nil || root.ID == id {
		return root, fmt.Errorf("move %s: %w", id, ErrNotFound)
	}
	if FindByID(n, newParentID) != nil {
		return root, fmt.Errorf("move %s under %s: %w", id, newParentID, ErrInvalidMove)
	}
	detached, _ := RemoveByID(root, id)
	out, err := InsertChild(detached, newParentID, index, n)
	if err != nil {
		return root, err
	}
	return out, nil
}

// Count returns the number of nodes in the subtree.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node, int) bool { total++; return true })
	return total
}
