package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/typeid"
)

const maxOpLog = 500

var ErrInvalidOperation = errors.New("invalid operation")

type loggedOp struct {
	seq int64
	op  Operation
	by  string
}

// DocumentState holds the authoritative document of a room. The tree is
// persistent, so the root handed out by Document stays valid after later
// operations.
type DocumentState struct {
	mu        sync.RWMutex
	root      *document.Node
	serverSeq int64
	savedSeq  int64
	opLog     []loggedOp
}

func NewDocumentState(root *document.Node) *DocumentState {
	if root == nil {
		root = document.Empty(0, 0)
	}
	return &DocumentState{root: root}
}

func (ds *DocumentState) Document() (*document.Node, int64) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.root, ds.serverSeq
}

// Dirty reports whether operations were applied since the last MarkSaved.
func (ds *DocumentState) Dirty() bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.serverSeq != ds.savedSeq
}

// MarkSaved records that the document as of seq is persisted.
func (ds *DocumentState) MarkSaved(seq int64) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if seq > ds.savedSeq {
		ds.savedSeq = seq
	}
}

// ApplyOperation applies op on behalf of userID and returns its server
// sequence number. A rejected operation leaves the document unchanged.
func (ds *DocumentState) ApplyOperation(op *Operation, userID string) (int64, error) {
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	next, err := applyOperation(ds.root, op)
	if err != nil {
		return 0, err
	}
	ds.root = next
	ds.serverSeq++

	ds.opLog = append(ds.opLog, loggedOp{seq: ds.serverSeq, op: *op, by: userID})
	if len(ds.opLog) > maxOpLog {
		ds.opLog = append([]loggedOp(nil), ds.opLog[len(ds.opLog)-maxOpLog:]...)
	}
	return ds.serverSeq, nil
}

// OpsSince returns the logged operations after seq, oldest first. ok is
// false when some of them have already been dropped from the log.
func (ds *DocumentState) OpsSince(seq int64) ([]loggedOp, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if seq >= ds.serverSeq {
		return nil, true
	}
	if len(ds.opLog) == 0 || ds.opLog[0].seq > seq+1 {
		return nil, false
	}
	start := len(ds.opLog) - int(ds.serverSeq-seq)
	return append([]loggedOp(nil), ds.opLog[start:]...), true
}

func applyOperation(root *document.Node, op *Operation) (*document.Node, error) {
	switch op.Type {
	case OpNodeUpdate:
		return applyUpdate(root, op)
	case OpNodeInsert:
		return applyInsert(root, op)
	case OpNodeRemove:
		return applyRemove(root, op)
	case OpNodeMove:
		return applyMove(root, op)
	case OpDocumentReplace:
		return applyReplace(op)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidOperation, op.Type)
	}
}

func applyUpdate(root *document.Node, op *Operation) (*document.Node, error) {
	if _, ok := op.Attrs["id"]; ok {
		return nil, fmt.Errorf("%w: id cannot be changed", ErrInvalidOperation)
	}
	out, ok := document.UpdateByID(root, op.NodeID, func(n *document.Node) {
		for k, v := range op.Attrs {
			if v == nil {
				delete(n.Attrs, k)
			} else {
				n.Attrs[k] = *v
			}
		}
		if op.Text != nil {
			n.Text = *op.Text
		}
	})
	if !ok {
		return nil, fmt.Errorf("update %s: %w", op.NodeID, document.ErrNotFound)
	}
	return out, nil
}

func applyInsert(root *document.Node, op *Operation) (*document.Node, error) {
	if op.Node == nil || op.Node.Tag == "" {
		return nil, fmt.Errorf("%w: node.insert needs a node with a tag", ErrInvalidOperation)
	}
	normalize(op.Node)
	parent := op.ParentID
	if parent == "" {
		parent = root.ID
	}
	return document.InsertChild(root, parent, index(op.Index), op.Node)
}

// normalize fills what a client may leave out of a submitted subtree.
// Generated ids are written back into op so broadcasts carry them.
func normalize(n *document.Node) {
	document.Walk(n, func(c *document.Node, _ int) bool {
		if c.ID == "" {
			c.ID = typeid.NewNodeID()
		}
		if c.Attrs == nil {
			c.Attrs = map[string]string{}
		}
		delete(c.Attrs, "id")
		c.Type = document.NodeTypeOf(c.Tag)
		return true
	})
}

func applyRemove(root *document.Node, op *Operation) (*document.Node, error) {
	if op.NodeID == root.ID {
		return nil, fmt.Errorf("%w: the root cannot be removed", ErrInvalidOperation)
	}
	out, ok := document.RemoveByID(root, op.NodeID)
	if !ok {
		return nil, fmt.Errorf("remove %s: %w", op.NodeID, document.ErrNotFound)
	}
	return out, nil
}

func applyMove(root *document.Node, op *Operation) (*document.Node, error) {
	parent := op.ParentID
	if parent == "" {
		parent = root.ID
	}
	return document.MoveNode(root, op.NodeID, parent, index(op.Index))
}

func applyReplace(op *Operation) (*document.Node, error) {
	root, err := document.FromMarkup(op.Markup)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func index(i *int) int {
	if i == nil {
		return -1
	}
	return *i
}

func serverTimestamp() int64 {
	return time.Now().UnixMilli()
}
