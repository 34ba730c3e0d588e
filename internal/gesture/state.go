// Package gesture is the drag-to-delete state machine of a list row.
package gesture

import "time"

// Geometry of the drag, in points.
const (
	TransformThreshold = 20.0
	DeleteThreshold    = 72.0
	DeleteSnap         = 80.0
)

// SnapAnimation is the duration of a full-length snap.
const SnapAnimation = 200 * time.Millisecond

// State is the row's swipe state.
type State int

const (
	Normal State = iota
	Transforming
	Delete
)

func (s State) String() string {
	switch s {
	case Transforming:
		return "transforming"
	case Delete:
		return "delete"
	default:
		return "normal"
	}
}

// Threshold is the drag offset beyond which s is entered.
func (s State) Threshold() float64 {
	switch s {
	case Transforming:
		return TransformThreshold
	case Delete:
		return DeleteThreshold
	default:
		return 0
	}
}

// SnapOffset is where the surface rests in s. Transforming has none.
func (s State) SnapOffset() (float64, bool) {
	switch s {
	case Normal:
		return 0, true
	case Delete:
		return DeleteSnap, true
	default:
		return 0, false
	}
}

// Phase is the stage of a pointer gesture.
type Phase int

const (
	PhaseBegan Phase = iota
	PhaseChanged
	PhaseEnded
	// PhaseOther covers taps, cancels and anything that is not a drag.
	PhaseOther
)

// Event is one pointer sample. X is ignored for PhaseEnded and PhaseOther.
type Event struct {
	Phase Phase
	X     float64
}

func Began(x float64) Event   { return Event{Phase: PhaseBegan, X: x} }
func Changed(x float64) Event { return Event{Phase: PhaseChanged, X: x} }
func Ended() Event            { return Event{Phase: PhaseEnded} }
func Other() Event            { return Event{Phase: PhaseOther} }
