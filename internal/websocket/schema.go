package websocket

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
	EventTick    Event = "tick"
	EventExpired Event = "expired"
	EventPong    Event = "pong"
	EventError   Event = "error"
)

// TickResponse carries the remaining time of the attempt. It is pushed
// periodically and after every client ping.
type TickResponse struct {
	Event            Event  `json:"event"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	TimeLimitSeconds *int64 `json:"time_limit_seconds,omitempty"`
}

// ExpiredResponse is the final message before the server closes the stream.
type ExpiredResponse struct {
	Event Event `json:"event"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
