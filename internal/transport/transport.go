// Package transport holds the play/stop state of a session.
package transport

// Transport records whether the session is playing and the time at which
// that value last changed. The boundary time keeps the beat grid continuous
// across start/stop transitions.
//
// Transport is a plain value; copies are independent.
type Transport struct {
	IsPlaying bool
	Time      int64 // microseconds
}

// SetIsPlaying records a transport change taking effect at time.
func (t *Transport) SetIsPlaying(isPlaying bool, time int64) {
	t.IsPlaying = isPlaying
	t.Time = time
}

// Playing reports whether transport is playing.
func (t Transport) Playing() bool {
	return t.IsPlaying
}

// TimeForIsPlaying returns the time of the last start/stop change.
func (t Transport) TimeForIsPlaying() int64 {
	return t.Time
}
