package protocol

import (
	"encoding/json"
	"fmt"
)

// CommandResult is one element of a RUN_COMMAND reply. The reply carries
// one result per semicolon/comma-separated command in the request.
type CommandResult struct {
	Success    bool   `json:"success"`
	ParseError bool   `json:"parse_error,omitempty"`
	Error      string `json:"error,omitempty"`
}

// DecodeCommandResults parses a RUN_COMMAND reply payload.
func DecodeCommandResults(raw []byte) ([]CommandResult, error) {
	var results []CommandResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("protocol: decode command results: %w", err)
	}
	return results, nil
}

// AllSucceeded reports whether every result carries success=true. An empty
// result list counts as success; the compositor replies that way to a
// blank command string.
func AllSucceeded(results []CommandResult) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

// statusReply covers the single-object {"success": bool} replies used by
// SUBSCRIBE acks, SEND_TICK, and SYNC.
type statusReply struct {
	Success bool `json:"success"`
}

// DecodeStatus parses a {"success": bool} reply payload.
func DecodeStatus(raw []byte) (bool, error) {
	var s statusReply
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("protocol: decode status reply: %w", err)
	}
	return s.Success, nil
}

// PeekChange extracts the "change" discriminator from an event payload.
// Event categories without one (tick, bar_state_update) and payloads the
// change cannot be read from yield "", which matches only any-change
// handler registrations.
func PeekChange(body []byte) string {
	var probe struct {
		Change string `json:"change"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.Change
}
