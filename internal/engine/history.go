package engine

import (
	"errors"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// History keeps past document roots for undo and redo. Roots are
// persistent trees, so a state costs only the nodes its edit copied.
type History struct {
	states  []*document.Node
	current int
	limit   int
}

// NewHistory creates a history holding at most limit states.
func NewHistory(limit int) *History {
	if limit < 2 {
		limit = 2
	}
	return &History{current: -1, limit: limit}
}

// SaveState records root as the newest state and drops any redo states.
func (h *History) SaveState(root *document.Node) {
	if h.current >= 0 && h.states[h.current] == root {
		return
	}
	h.states = append(h.states[:h.current+1], root)
	if len(h.states) > h.limit {
		h.states = h.states[len(h.states)-h.limit:]
	}
	h.current = len(h.states) - 1
}

// Reset forgets everything and starts over from root.
func (h *History) Reset(root *document.Node) {
	h.states = []*document.Node{root}
	h.current = 0
}

func (h *History) Undo() (*document.Node, error) {
	if h.current <= 0 {
		return nil, ErrNothingToUndo
	}
	h.current--
	return h.states[h.current], nil
}

func (h *History) Redo() (*document.Node, error) {
	if h.current < 0 || h.current >= len(h.states)-1 {
		return nil, ErrNothingToRedo
	}
	h.current++
	return h.states[h.current], nil
}

// Stats returns the 1-based position of the current state and the total.
func (h *History) Stats() (current, total int) {
	return h.current + 1, len(h.states)
}
