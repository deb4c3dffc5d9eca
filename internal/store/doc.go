// Package store provides a SQLite-backed journal of session commits.
//
// Each row is one canonical session state the controller published: the
// timeline, the transport and the realignment tag it carried, plus the
// commit sequence number and the path that produced it (app, audio, peer).
//
// # Ordering
//
//   - Rows are ordered by an autoincrement position, never by wall time
//   - seq is the controller's logical commit counter; it restarts with the
//     process unless the controller is restored from the journal
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// The journal is written only from the controller's dispatcher goroutine.
// Nothing in this package is safe to call from an audio callback.
package store
