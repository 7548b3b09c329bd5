package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSubmission Event = "submission"
	EventPong       Event = "pong"
)

// SubmissionMessage wraps a relayed submission event for staff watchers.
// The submission payload is forwarded as published, without re-encoding.
type SubmissionMessage struct {
	Event      Event           `json:"event"`
	Submission json.RawMessage `json:"submission"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
