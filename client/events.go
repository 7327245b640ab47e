package client

import (
	"strings"

	"github.com/ffx64/discord-presence-go/wire"
)

// EventType is a bitset of the server events a client can subscribe to.
type EventType uint8

const (
	EventNone     EventType = 0
	EventJoin     EventType = 1 << 0
	EventSpectate EventType = 1 << 1
	// EventJoinRequest asks Discord to forward join requests so the
	// application can answer them with Respond.
	EventJoinRequest EventType = 1 << 2

	EventAll = EventJoin | EventSpectate | EventJoinRequest
)

// Has reports whether every bit of e2 is set in e.
func (e EventType) Has(e2 EventType) bool {
	return e&e2 == e2
}

// split breaks a bitset into its individual bits.
func (e EventType) split() []EventType {
	var out []EventType
	for _, bit := range []EventType{EventJoin, EventSpectate, EventJoinRequest} {
		if e.Has(bit) {
			out = append(out, bit)
		}
	}
	return out
}

// serverEvent maps a single bit to the event tag Discord expects in
// SUBSCRIBE / UNSUBSCRIBE commands.
func (e EventType) serverEvent() string {
	switch e {
	case EventJoin:
		return wire.EventActivityJoin
	case EventSpectate:
		return wire.EventActivitySpectate
	case EventJoinRequest:
		return wire.EventActivityJoinRequest
	default:
		return ""
	}
}

func (e EventType) String() string {
	if e == EventNone {
		return "none"
	}
	var parts []string
	if e.Has(EventJoin) {
		parts = append(parts, "join")
	}
	if e.Has(EventSpectate) {
		parts = append(parts, "spectate")
	}
	if e.Has(EventJoinRequest) {
		parts = append(parts, "join_request")
	}
	return strings.Join(parts, "|")
}
