package engine

// PointerCapture routes every pointer event to the editor for the duration
// of a press, typically by installing move/up listeners on the window.
type PointerCapture interface {
	Acquire()
	Release()
}

// NopCapture is a PointerCapture for hosts that deliver every event anyway.
type NopCapture struct{}

func (NopCapture) Acquire() {}
func (NopCapture) Release() {}

// captureScope pairs each Acquire with exactly one Release, however the
// press ends.
type captureScope struct {
	c    PointerCapture
	held bool
}

func (s *captureScope) acquire() {
	if s.held || s.c == nil {
		return
	}
	s.c.Acquire()
	s.held = true
}

func (s *captureScope) release() {
	if !s.held {
		return
	}
	s.held = false
	s.c.Release()
}
