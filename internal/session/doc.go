// Package session defines State, the unit of capture and commit.
//
// A State combines a timeline and a transport into one value snapshot. It is
// intended for use in a local scope within a single goroutine: an
// application captures a State from the controller, reads or mutates its
// copy, and commits it back. None of its methods are thread-safe, and none of
// them block or allocate, so a State may be used on the audio path.
//
// The start/stop state represents the user's intention to start or stop
// transport at a specific time. It is shared with other peers only when
// start/stop sync is enabled on the controller.
//
// # Realignment requests
//
// RequestBeatAtTime and ForceBeatAtTime change the local timeline the same
// way. They also tag the State with a Realignment (Soft or Hard) that travels
// with the commit, so the peer engine can decide whether to negotiate the
// mapping with the session (Soft) or impose it (Hard).
package session
