// Package ipc owns the socket side of the sway IPC client.
//
// Ownership boundary:
// - socket path resolution and connection lifecycle
// - whole-frame send/receive over one connection
// - request/reply calls and the long-lived subscription stream
//
// A Transport is single-reader: its receive buffer is not synchronized,
// so callers needing concurrent access serialize through one reader.
package ipc
