package platform

import (
	"sync"

	"layerkeyd/internal/keycode"
)

// SimEventKind tags one recorded call against a SimOut.
type SimEventKind int

const (
	SimPress SimEventKind = iota
	SimRelease
	SimWrite
	SimClick
	SimReleaseButton
	SimScroll
	SimMove
	SimSetMouse
	SimUnicode
	SimWriteCode
)

// SimEvent is one recorded SimOut call, for assertions in tests.
type SimEvent struct {
	Kind  SimEventKind
	Key   keycode.KeyCode
	Rune  rune
	Dir   MouseDirection
	N     int
	X, Y  int
}

// SimOut is an in-process OsOut that records every call instead of
// touching the OS. It backs package tests and `layerkeycheck -simulate`.
type SimOut struct {
	mu     sync.Mutex
	Events []SimEvent
	closed bool
}

func NewSimOut() *SimOut { return &SimOut{} }

func (s *SimOut) record(e SimEvent) {
	s.mu.Lock()
	s.Events = append(s.Events, e)
	s.mu.Unlock()
}

func (s *SimOut) PressKey(k keycode.KeyCode) error {
	s.record(SimEvent{Kind: SimPress, Key: k})
	return nil
}

func (s *SimOut) ReleaseKey(k keycode.KeyCode) error {
	s.record(SimEvent{Kind: SimRelease, Key: k})
	return nil
}

func (s *SimOut) WriteKey(k keycode.KeyCode) error {
	s.record(SimEvent{Kind: SimWrite, Key: k})
	return nil
}

func (s *SimOut) ClickButton(k keycode.KeyCode) error {
	s.record(SimEvent{Kind: SimClick, Key: k})
	return nil
}

func (s *SimOut) ReleaseButton(k keycode.KeyCode) error {
	s.record(SimEvent{Kind: SimReleaseButton, Key: k})
	return nil
}

func (s *SimOut) Scroll(dir MouseDirection, notches int) error {
	s.record(SimEvent{Kind: SimScroll, Dir: dir, N: notches})
	return nil
}

func (s *SimOut) MoveMouse(dx, dy int) error {
	s.record(SimEvent{Kind: SimMove, X: dx, Y: dy})
	return nil
}

func (s *SimOut) SetMouse(x, y int) error {
	s.record(SimEvent{Kind: SimSetMouse, X: x, Y: y})
	return nil
}

func (s *SimOut) SendUnicode(r rune) error {
	s.record(SimEvent{Kind: SimUnicode, Rune: r})
	return nil
}

func (s *SimOut) WriteCode(k keycode.KeyCode) error {
	s.record(SimEvent{Kind: SimWriteCode, Key: k})
	return nil
}

func (s *SimOut) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Held reconstructs the set of keys currently pressed (Press without a
// matching Release) by replaying the recorded events in order.
func (s *SimOut) Held() []keycode.KeyCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var held []keycode.KeyCode
	refs := map[keycode.KeyCode]int{}
	for _, e := range s.Events {
		switch e.Kind {
		case SimPress:
			if refs[e.Key] == 0 {
				held = append(held, e.Key)
			}
			refs[e.Key]++
		case SimRelease:
			if refs[e.Key] > 0 {
				refs[e.Key]--
				if refs[e.Key] == 0 {
					for i, k := range held {
						if k == e.Key {
							held = append(held[:i], held[i+1:]...)
							break
						}
					}
				}
			}
		}
	}
	return held
}

// SimInput is an in-process InputProvider fed by test code via Push.
type SimInput struct {
	mu     sync.Mutex
	queue  []InputEvent
	cond   *sync.Cond
	closed bool
}

func NewSimInput() *SimInput {
	s := &SimInput{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *SimInput) Push(ev InputEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *SimInput) Read() (InputEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed && len(s.queue) == 0 {
		return InputEvent{}, errClosed
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, nil
}

func (s *SimInput) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	return nil
}
