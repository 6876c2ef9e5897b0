package projector

import (
	"layerkeyd/internal/layout"
	"layerkeyd/internal/platform"
)

func platformDir(d layout.MouseDirection) platform.MouseDirection {
	switch d {
	case layout.DirUp:
		return platform.DirUp
	case layout.DirDown:
		return platform.DirDown
	case layout.DirLeft:
		return platform.DirLeft
	case layout.DirRight:
		return platform.DirRight
	default:
		return platform.DirUp
	}
}

// tickMouse advances every active movemouse/scroll counter by one tick
// (spec.md §4.5 step 6). Accelerating moves interpolate distance between
// min_distance and max_distance over accel_time ticks; when diagonal
// smoothing is enabled, a horizontal and vertical move queued in the same
// tick are flushed together instead of as two separate OS calls.
func (p *Projector) tickMouse() error {
	var dx, dy int
	for dir, st := range p.moves {
		st.ticksActive++
		dist := st.minDist
		if st.accel && st.accelTicks > 0 {
			frac := st.ticksActive
			if frac > st.accelTicks {
				frac = st.accelTicks
			}
			dist = st.minDist + (st.maxDist-st.minDist)*frac/st.accelTicks
		} else if st.accel {
			dist = st.maxDist
		}
		switch dir {
		case layout.DirUp:
			dy -= dist
		case layout.DirDown:
			dy += dist
		case layout.DirLeft:
			dx -= dist
		case layout.DirRight:
			dx += dist
		}
	}
	if dx != 0 || dy != 0 {
		if p.graph.Options.MovemouseSmoothDiagonals {
			if err := p.out.MoveMouse(dx, dy); err != nil {
				return err
			}
		} else {
			if dx != 0 {
				if err := p.out.MoveMouse(dx, 0); err != nil {
					return err
				}
			}
			if dy != 0 {
				if err := p.out.MoveMouse(0, dy); err != nil {
					return err
				}
			}
		}
	}

	for dir, st := range p.scrolls {
		if st.ticksLeft > 0 {
			st.ticksLeft--
			continue
		}
		st.ticksLeft = st.intervalTicks
		pdir := platformDir(dir)
		if err := p.out.Scroll(pdir, 1); err != nil {
			return err
		}
	}
	return nil
}
