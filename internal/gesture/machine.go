package gesture

import (
	"math"
	"time"

	"github.com/rpggio/trips/internal/reactive"
)

// Surface is the row content being dragged. A displacement d moves the
// leading edge to -d and the trailing edge to +d.
type Surface interface {
	SetDisplacement(d float64)
	AnimateDisplacement(d float64, duration time.Duration)
}

// Machine turns pointer events into swipe states. It is owned by the loop.
type Machine struct {
	surface  Surface
	state    State
	anchor   float64
	anchored bool
	offset   float64
}

// NewMachine creates a machine in Normal. surface may be nil.
func NewMachine(surface Surface) *Machine {
	return &Machine{surface: surface}
}

// State is the last state Handle produced.
func (m *Machine) State() State { return m.state }

// Offset is anchor minus the latest pointer X.
func (m *Machine) Offset() float64 { return m.offset }

// Handle advances the machine by one event and returns the new state.
// While transforming it moves the surface along with the pointer.
func (m *Machine) Handle(ev Event) State {
	switch ev.Phase {
	case PhaseBegan:
		m.anchor = ev.X
		if m.state == Delete {
			// Resume from where the surface rests.
			m.anchor = ev.X + TransformThreshold + DeleteSnap
		}
		m.anchored = true
		m.state = m.track(ev.X)
	case PhaseChanged:
		if !m.anchored {
			m.state = Normal
			break
		}
		m.state = m.track(ev.X)
	case PhaseEnded:
		if m.anchored && m.offset > DeleteThreshold {
			m.state = Delete
		} else {
			m.state = Normal
		}
	default:
		m.state = Normal
	}
	return m.state
}

func (m *Machine) track(x float64) State {
	m.offset = m.anchor - x
	if m.offset > TransformThreshold {
		if m.surface != nil {
			m.surface.SetDisplacement(m.offset - TransformThreshold)
		}
		return Transforming
	}
	return Normal
}

// States maps events to states, dropping repeats.
func (m *Machine) States(events reactive.Stream[Event]) reactive.Stream[State] {
	return reactive.Distinct(reactive.Map(events, m.Handle))
}

// Run drives the machine from events until scope is disposed, snapping the
// surface on every state change. onState may be nil.
func (m *Machine) Run(scope *reactive.Scope, events reactive.Stream[Event], onState func(State)) {
	m.States(events)(scope, func(s State) {
		m.snap(s)
		if onState != nil {
			onState(s)
		}
	})
}

func (m *Machine) snap(s State) {
	target, ok := s.SnapOffset()
	if !ok || m.surface == nil {
		return
	}
	m.surface.AnimateDisplacement(target, SnapDuration(m.offset))
}

// SnapDuration scales SnapAnimation by how far the surface is from where
// it will rest.
func SnapDuration(offset float64) time.Duration {
	gap := TransformThreshold
	var ratio float64
	if offset > DeleteThreshold {
		ratio = math.Abs(offset-gap-DeleteSnap) / DeleteSnap
	} else {
		ratio = math.Abs(offset-gap) / DeleteSnap
	}
	return time.Duration(float64(SnapAnimation) * math.Min(ratio, 1))
}
