package activity

// Observer is told the in-flight count of a named tracker whenever it
// changes.
type Observer interface {
	ObserveInFlight(tracker string, count int)
}
