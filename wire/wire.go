// Package wire defines the JSON payload types exchanged with the Discord
// client inside opcode frames. The engine and client both import these —
// single source of truth for command and event tags.
package wire

import "encoding/json"

// Command tags accepted by the Discord client.
const (
	CommandDispatch                 = "DISPATCH"
	CommandSetActivity              = "SET_ACTIVITY"
	CommandSubscribe                = "SUBSCRIBE"
	CommandUnsubscribe              = "UNSUBSCRIBE"
	CommandSendActivityJoinInvite   = "SEND_ACTIVITY_JOIN_INVITE"
	CommandCloseActivityJoinRequest = "CLOSE_ACTIVITY_JOIN_REQUEST"
)

// Event tags dispatched by the Discord client.
const (
	EventReady               = "READY"
	EventError               = "ERROR"
	EventActivityJoin        = "ACTIVITY_JOIN"
	EventActivitySpectate    = "ACTIVITY_SPECTATE"
	EventActivityJoinRequest = "ACTIVITY_JOIN_REQUEST"
)

// Envelope is the JSON object carried by every OpFrame payload, both
// directions. Outbound commands fill Cmd, Nonce and Args; inbound
// dispatches fill Cmd ("DISPATCH"), Evt and Data; command acks echo the
// nonce and carry the result in Data.
type Envelope struct {
	Cmd   string          `json:"cmd"`
	Nonce string          `json:"nonce,omitempty"`
	Evt   string          `json:"evt,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Args  any             `json:"args,omitempty"`
}

// Handshake is the payload of the first frame on a fresh connection.
type Handshake struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

// CloseReason is the payload sent with OpClose on a graceful shutdown.
// Discord uses the pid to reap the presence of the exiting process.
type CloseReason struct {
	PID    int    `json:"pid"`
	Reason string `json:"reason,omitempty"`
}

// ClosedEvent is the payload received with an inbound OpClose.
type ClosedEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// SetActivityArgs are the arguments of a SET_ACTIVITY command. Activity
// is nil to clear the presence.
type SetActivityArgs struct {
	PID      int `json:"pid"`
	Activity any `json:"activity,omitempty"`
}

// RespondArgs are the arguments of the join-request answer commands.
type RespondArgs struct {
	UserID string `json:"user_id"`
}

// ErrorData is the Data of an ERROR event or a failed command ack.
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Ping is the payload echoed between OpPing and OpPong frames.
type Ping struct {
	Seq uint64 `json:"seq"`
}
