// Package protocol owns the sway IPC wire contract.
//
// Ownership boundary:
// - message kind enumeration (request/reply and event ranges)
// - event category and change-type names
// - reply payload shapes shared by the client and the dispatcher
package protocol
