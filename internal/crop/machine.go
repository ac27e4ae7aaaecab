/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crop holds the crop-selection engine: a small state machine that
// turns pointer gestures in display space into a rectangle in original-image
// pixel space, and the executor that extracts that rectangle.
package crop

import (
	"errors"
	"fmt"
	"image"

	"croppy/internal/geom"
)

// MinSelection is the smallest selection edge, in display pixels, that
// commits a crop. Anything smaller ends the gesture as a no-op.
const MinSelection = 5

// ErrNoCrop reports a gesture that ended below MinSelection. It is a normal
// outcome, not a failure; callers usually just clear the overlay.
var ErrNoCrop = errors.New("selection below minimum size")

// State is the gesture lifecycle of a Machine.
type State int

const (
	// StateIdle accepts a new gesture.
	StateIdle State = iota
	// StateLoading blocks all gestures while an image is being loaded.
	StateLoading
	// StateDragging tracks an active selection.
	StateDragging
	// StateCommitted is terminal for one gesture; the next start resets it.
	StateCommitted
	// StateCancelled is terminal for one gesture; the next start resets it.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateDragging:
		return "dragging"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind enumerates the gesture events the machine consumes.
type EventKind int

const (
	EventStart EventKind = iota
	EventMove
	EventEnd
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventMove:
		return "move"
	case EventEnd:
		return "end"
	case EventCancel:
		return "cancel"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one typed gesture event with its display-space position.
type Event struct {
	Kind  EventKind
	Point geom.Pt
}

// Outcome is the machine's answer to an event: the state it is now in,
// the overlay to render (replacing any previous one), and, after a
// successful end, the committed crop rectangle in source pixels.
type Outcome struct {
	State          State
	Overlay        geom.Rect
	OverlayVisible bool
	Crop           image.Rectangle
	Committed      bool
}

// Machine tracks a single crop gesture against the active display layout.
// One instance lives per viewer session. It is not safe for concurrent
// use; all events must arrive on the one event-handling goroutine, which
// is how GUI toolkits deliver them anyway.
type Machine struct {
	layout  geom.Layout
	state   State
	anchor  geom.Pt
	point   geom.Pt
	overlay bool
}

// NewMachine returns an idle machine bound to the given layout.
func NewMachine(layout geom.Layout) *Machine {
	return &Machine{layout: layout, state: StateIdle}
}

// State returns the current gesture state.
func (m *Machine) State() State { return m.state }

// Layout returns the display layout the machine is operating against.
func (m *Machine) Layout() geom.Layout { return m.layout }

// Apply feeds one event into the machine. Out-of-order or duplicate
// events never corrupt state: they degrade to no-ops, except that a
// start during an active drag restarts the gesture (the new gesture
// wins, pending state is discarded).
func (m *Machine) Apply(ev Event) Outcome {
	switch ev.Kind {
	case EventStart:
		return m.start(ev.Point)
	case EventMove:
		return m.move(ev.Point)
	case EventEnd:
		return m.end(ev.Point)
	case EventCancel:
		return m.Cancel()
	default:
		return m.outcome()
	}
}

func (m *Machine) start(p geom.Pt) Outcome {
	if m.state == StateLoading {
		return m.outcome()
	}
	m.anchor = m.layout.ClampPt(p)
	m.point = m.anchor
	m.state = StateDragging
	m.overlay = true
	return m.outcome()
}

func (m *Machine) move(p geom.Pt) Outcome {
	if m.state != StateDragging {
		return m.outcome()
	}
	m.point = m.layout.ClampPt(p)
	return m.outcome()
}

func (m *Machine) end(p geom.Pt) Outcome {
	if m.state != StateDragging {
		return m.outcome()
	}
	m.point = m.layout.ClampPt(p)
	rect, err := Finalize(m.layout, m.anchor, m.point)
	m.overlay = false
	if err != nil {
		m.state = StateCancelled
		return m.outcome()
	}
	m.state = StateCommitted
	out := m.outcome()
	out.Crop = rect
	out.Committed = true
	return out
}

// Cancel abandons any gesture in progress and clears the overlay. During
// a load it only clears the overlay; the machine stays in StateLoading
// until FinishLoad.
func (m *Machine) Cancel() Outcome {
	m.overlay = false
	if m.state != StateLoading {
		m.state = StateCancelled
	}
	return m.outcome()
}

// BeginLoad blocks gestures while the session swaps the image. Any
// selection in progress is discarded.
func (m *Machine) BeginLoad() Outcome {
	m.overlay = false
	m.state = StateLoading
	return m.outcome()
}

// FinishLoad installs the layout for the newly loaded image and returns
// the machine to idle.
func (m *Machine) FinishLoad(layout geom.Layout) Outcome {
	m.layout = layout
	m.overlay = false
	m.state = StateIdle
	return m.outcome()
}

// Relayout installs a new layout after the display area changed. A drag
// in flight is cancelled first: its display-space coordinates are stale
// against the new layout and must not leak into a crop.
func (m *Machine) Relayout(layout geom.Layout) Outcome {
	if m.state == StateDragging {
		m.Cancel()
	}
	m.layout = layout
	return m.outcome()
}

func (m *Machine) outcome() Outcome {
	out := Outcome{State: m.state}
	if m.overlay {
		out.Overlay = geom.FromCorners(m.anchor, m.point)
		out.OverlayVisible = true
	}
	return out
}

// Finalize turns the two corner points of a finished drag into a crop
// rectangle in source pixels. Both points are expected in display space,
// already clamped to the image's on-screen rectangle. Returns ErrNoCrop
// when the selection is below MinSelection on either axis.
func Finalize(l geom.Layout, a, b geom.Pt) (image.Rectangle, error) {
	x1 := min(a.X, b.X) - float64(l.OffsetX)
	y1 := min(a.Y, b.Y) - float64(l.OffsetY)
	x2 := max(a.X, b.X) - float64(l.OffsetX)
	y2 := max(a.Y, b.Y) - float64(l.OffsetY)

	x1 = geom.Clamp(x1, 0, float64(l.DisplayW))
	x2 = geom.Clamp(x2, 0, float64(l.DisplayW))
	y1 = geom.Clamp(y1, 0, float64(l.DisplayH))
	y2 = geom.Clamp(y2, 0, float64(l.DisplayH))

	if x2-x1 < MinSelection || y2-y1 < MinSelection {
		return image.Rectangle{}, fmt.Errorf("%.0fx%.0f px: %w", x2-x1, y2-y1, ErrNoCrop)
	}

	// Truncate toward zero, matching the original-pixel grid.
	r := image.Rect(int(x1*l.ScaleX), int(y1*l.ScaleY), int(x2*l.ScaleX), int(y2*l.ScaleY))

	// A selection above the display-space minimum can still truncate to
	// zero source pixels when the image is shown magnified (scale < 1).
	// Guarantee at least one pixel; the "+1" stays in bounds because the
	// selection start is at least MinSelection short of the display edge.
	if r.Dx() < 1 {
		r.Max.X = r.Min.X + 1
	}
	if r.Dy() < 1 {
		r.Max.Y = r.Min.Y + 1
	}
	return r, nil
}
