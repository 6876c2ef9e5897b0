package layout

import "layerkeyd/internal/keycode"

// QueueEventKind tags a queued input edge (spec.md §3: "Queue entry").
type QueueEventKind int

const (
	QueuePress QueueEventKind = iota
	QueueRelease
)

// Coord identifies the (row, col) position that produced a queue entry or
// engine state, so the engine can scope a release to the coordinate that
// produced it. Row 0 is physical, row 1 is virtual/fake keys.
type Coord struct {
	Row uint8
	Col uint16
}

// QueueEntry is one pending input event awaiting hold-tap or lazy
// tap-dance resolution. The engine does not advance AgeTicks.
type QueueEntry struct {
	Kind     QueueEventKind
	Coord    Coord
	KeyCode  keycode.KeyCode
	AgeTicks uint16
}
