// Package wire defines the WebSocket protocol for remote editor sessions.
package wire

import "encoding/json"

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "edit", "input", "cancel", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// EditData is the payload for "edit" messages. An empty ID starts a new
// entity; otherwise the entity is loaded from the store.
type EditData struct {
	EntityType string `json:"entity_type"`
	ID         string `json:"id,omitempty"`
}

// InputData is the payload for "input" messages: one line answering the
// pending prompt.
type InputData struct {
	Line string `json:"line"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "prompt", "output", "table", "done", "error", "session", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// PromptData asks the client for one line of input.
type PromptData struct {
	Text string `json:"text"`
}

// OutputData carries one informational, warning or error line.
type OutputData struct {
	Level   string `json:"level"` // "info", "warn", "error"
	Message string `json:"message"`
}

// TableData carries tabular output.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// DoneData signals the end of an edit. Entity carries the stored payload
// when the edit committed.
type DoneData struct {
	Committed bool           `json:"committed"`
	Entity    map[string]any `json:"entity,omitempty"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
}
