// Package history is the SQLite-backed durable message store.
//
// It implements the session layer's History interface: committed messages
// are written through as turns settle, and the most recent slice of a
// conversation is loaded back when a session is (re)opened. The in-memory
// session bound never deletes anything here.
package history
