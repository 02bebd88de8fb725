package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree(t *testing.T) *Node {
	t.Helper()
	root, err := FromMarkup(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
		<g id="g1" transform="translate(5 5)">
			<rect id="r1" x="0" y="0" width="10" height="10"/>
			<circle id="c1" cx="20" cy="20" r="5"/>
		</g>
		<path id="p1" d="M0,0 L10,0"/>
	</svg>`)
	require.NoError(t, err)
	return root
}

func TestFindAndParent(t *testing.T) {
	root := sampleTree(t)

	c := FindByID(root, "c1")
	require.NotNil(t, c)
	assert.Equal(t, NodeTypeCircle, c.Type)
	assert.Nil(t, FindByID(root, "missing"))

	parent, idx := ParentOf(root, "c1")
	require.NotNil(t, parent)
	assert.Equal(t, "g1", parent.ID)
	assert.Equal(t, 1, idx)

	parent, _ = ParentOf(root, root.ID)
	assert.Nil(t, parent)

	chain := PathTo(root, "r1")
	require.Len(t, chain, 3)
	assert.Equal(t, []string{root.ID, "g1", "r1"}, []string{chain[0].ID, chain[1].ID, chain[2].ID})
}

func TestUpdateByIDSharesUntouchedSubtrees(t *testing.T) {
	root := sampleTree(t)
	before := ToMarkup(root)

	out, ok := UpdateByID(root, "r1", func(n *Node) {
		n.Attrs["width"] = "42"
		n.ID = "renamed"
	})
	require.True(t, ok)

	// old tree untouched
	assert.Equal(t, before, ToMarkup(root))
	assert.Equal(t, "10", FindByID(root, "r1").Attr("width"))

	r := FindByID(out, "r1")
	require.NotNil(t, r, "update must not change the id")
	assert.Equal(t, "42", r.Attr("width"))

	assert.NotSame(t, root, out)
	assert.NotSame(t, FindByID(root, "g1"), FindByID(out, "g1"))
	assert.Same(t, FindByID(root, "c1"), FindByID(out, "c1"))
	assert.Same(t, FindByID(root, "p1"), FindByID(out, "p1"))

	same, ok := UpdateByID(root, "missing", func(*Node) {})
	assert.False(t, ok)
	assert.Same(t, root, same)
}

func TestRemoveByID(t *testing.T) {
	root := sampleTree(t)

	out, ok := RemoveByID(root, "g1")
	require.True(t, ok)
	assert.Nil(t, FindByID(out, "g1"))
	assert.Nil(t, FindByID(out, "r1"))
	assert.NotNil(t, FindByID(root, "r1"))
	assert.Equal(t, 2, Count(out))

	_, ok = RemoveByID(root, root.ID)
	assert.False(t, ok)
	_, ok = RemoveByID(root, "missing")
	assert.False(t, ok)
}

func TestInsertChild(t *testing.T) {
	root := sampleTree(t)
	child := New("ellipse", map[string]string{"cx": "1", "cy": "1", "rx": "2", "ry": "3", "id": "ignored"})
	assert.NotEqual(t, "ignored", child.ID)
	assert.NotContains(t, child.Attrs, "id")

	out, err := InsertChild(root, "g1", 0, child)
	require.NoError(t, err)
	g := FindByID(out, "g1")
	require.Len(t, g.Children, 3)
	assert.Equal(t, child.ID, g.Children[0].ID)
	assert.Len(t, FindByID(root, "g1").Children, 2)

	// out-of-range index appends
	another := New("line", nil)
	out, err = InsertChild(out, root.ID, 99, another)
	require.NoError(t, err)
	assert.Equal(t, another.ID, out.Children[len(out.Children)-1].ID)

	_, err = InsertChild(out, "missing", 0, New("rect", nil))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = InsertChild(out, "g1", 0, child)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestMoveNode(t *testing.T) {
	root := sampleTree(t)

	out, err := MoveNode(root, "p1", "g1", 0)
	require.NoError(t, err)
	parent, idx := ParentOf(out, "p1")
	require.NotNil(t, parent)
	assert.Equal(t, "g1", parent.ID)
	assert.Equal(t, 0, idx)
	assert.Equal(t, Count(root), Count(out))

	_, err = MoveNode(root, "g1", "r1", 0)
	assert.ErrorIs(t, err, ErrInvalidMove)

	same, err := MoveNode(root, "p1", "missing", 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Same(t, root, same)
}

func TestCloneIsDeep(t *testing.T) {
	root := sampleTree(t)
	cp := root.Clone()
	assert.Equal(t, root, cp)
	cp.Children[0].Attrs["transform"] = "scale(2)"
	assert.Equal(t, "translate(5 5)", FindByID(root, "g1").Attr("transform"))
}

func TestNodeTypeOf(t *testing.T) {
	assert.Equal(t, NodeTypeGroup, NodeTypeOf("g"))
	assert.Equal(t, NodeTypeRect, NodeTypeOf("svg:rect"))
	assert.Equal(t, NodeTypeOther, NodeTypeOf("linearGradient"))
	assert.True(t, NodeTypeDefs.IsContainer())
	assert.False(t, NodeTypePath.IsContainer())
}

func TestFloatAttr(t *testing.T) {
	n := New("rect", map[string]string{"x": " 12.5 ", "width": "40px", "height": "auto"})
	v, ok := n.Float("x")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)
	v, ok = n.Float("width")
	assert.True(t, ok)
	assert.Equal(t, 40.0, v)
	_, ok = n.Float("height")
	assert.False(t, ok)
	_, ok = n.Float("y")
	assert.False(t, ok)
}

func TestReplaceByID(t *testing.T) {
	root := sampleTree(t)
	repl := New("circle", map[string]string{"r": "9"})

	out, ok := ReplaceByID(root, "c1", repl)
	require.True(t, ok)
	c := FindByID(out, "c1")
	require.NotNil(t, c)
	assert.Equal(t, "9", c.Attr("r"))
	assert.NotEqual(t, "c1", repl.ID)
	assert.Equal(t, "5", FindByID(root, "c1").Attr("r"))

	_, ok = ReplaceByID(root, "missing", repl)
	assert.False(t, ok)
}
