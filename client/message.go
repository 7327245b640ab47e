package client

import (
	"strconv"
	"time"

	"github.com/ffx64/discord-presence-go/internal/codec"
)

// MessageKind discriminates the Message union.
type MessageKind int

const (
	KindReady MessageKind = iota
	KindClose
	KindError
	KindPresenceUpdate
	KindSubscribe
	KindUnsubscribe
	KindJoin
	KindSpectate
	KindJoinRequest
	KindConnectionEstablished
	KindConnectionFailed
)

func (k MessageKind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindClose:
		return "close"
	case KindError:
		return "error"
	case KindPresenceUpdate:
		return "presence_update"
	case KindSubscribe:
		return "subscribe"
	case KindUnsubscribe:
		return "unsubscribe"
	case KindJoin:
		return "join"
	case KindSpectate:
		return "spectate"
	case KindJoinRequest:
		return "join_request"
	case KindConnectionEstablished:
		return "connection_established"
	case KindConnectionFailed:
		return "connection_failed"
	default:
		return "unknown"
	}
}

// Message is one inbound notification from the engine. Receivers switch
// on the concrete type (or on Kind) to handle it.
type Message interface {
	Kind() MessageKind
	// Timestamp is when the engine created the message.
	Timestamp() time.Time
}

// header carries the fields shared by every message.
type header struct {
	at time.Time
}

func newHeader() header {
	return header{at: time.Now()}
}

func (h header) Timestamp() time.Time { return h.at }

// Configuration is the environment block Discord sends with READY.
type Configuration struct {
	CDNHost     string `json:"cdn_host"`
	APIEndpoint string `json:"api_endpoint"`
	Environment string `json:"environment"`
}

// User identifies a Discord account. The avatar hash is raw; formatting
// a CDN URL out of it is up to the application.
type User struct {
	ID            uint64
	Username      string
	Discriminator uint16
	Avatar        string
}

// UnmarshalJSON decodes the wire representation, where the snowflake
// and discriminator arrive as strings.
func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		Discriminator string `json:"discriminator"`
		Avatar        string `json:"avatar"`
	}
	if err := codec.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, err := strconv.ParseUint(raw.ID, 10, 64)
	if err != nil {
		return err
	}
	u.ID = id
	u.Username = raw.Username
	u.Avatar = raw.Avatar
	if raw.Discriminator != "" {
		if d, err := strconv.ParseUint(raw.Discriminator, 10, 16); err == nil {
			u.Discriminator = uint16(d)
		}
	}
	return nil
}

// ReadyMessage is delivered once per successful handshake.
type ReadyMessage struct {
	header
	Version       int
	Configuration Configuration
	User          User
}

func (ReadyMessage) Kind() MessageKind { return KindReady }

// CloseMessage is delivered when the connection to Discord ends, either
// on request or because the pipe broke.
type CloseMessage struct {
	header
	Code   int
	Reason string
}

func (CloseMessage) Kind() MessageKind { return KindClose }

// ErrorMessage carries an ERROR envelope from Discord or a local fault
// such as a dropped command.
type ErrorMessage struct {
	header
	Code    int
	Message string
}

func (ErrorMessage) Kind() MessageKind { return KindError }

// PresenceMessage echoes the rich presence Discord now displays, as
// acknowledged by a SET_ACTIVITY round trip.
type PresenceMessage struct {
	header
	Presence *Activity
}

func (PresenceMessage) Kind() MessageKind { return KindPresenceUpdate }

// SubscribeMessage acknowledges a SUBSCRIBE command.
type SubscribeMessage struct {
	header
	Event EventType
}

func (SubscribeMessage) Kind() MessageKind { return KindSubscribe }

// UnsubscribeMessage acknowledges an UNSUBSCRIBE command.
type UnsubscribeMessage struct {
	header
	Event EventType
}

func (UnsubscribeMessage) Kind() MessageKind { return KindUnsubscribe }

// JoinMessage is delivered when the user accepts an invite; Secret is
// handed to the game's join flow.
type JoinMessage struct {
	header
	Secret string
}

func (JoinMessage) Kind() MessageKind { return KindJoin }

// SpectateMessage is delivered when the user starts spectating.
type SpectateMessage struct {
	header
	Secret string
}

func (SpectateMessage) Kind() MessageKind { return KindSpectate }

// JoinRequestMessage is delivered when somebody asks to join the party.
// Answer it with Respond.
type JoinRequestMessage struct {
	header
	User User
}

func (JoinRequestMessage) Kind() MessageKind { return KindJoinRequest }

// ConnectionEstablishedMessage reports which endpoint the engine is now
// connected to.
type ConnectionEstablishedMessage struct {
	header
	Pipe int
}

func (ConnectionEstablishedMessage) Kind() MessageKind { return KindConnectionEstablished }

// ConnectionFailedMessage reports that the whole pipe scan came up
// empty. Pipe is -1 unless a single endpoint was pinned.
type ConnectionFailedMessage struct {
	header
	Pipe int
}

func (ConnectionFailedMessage) Kind() MessageKind { return KindConnectionFailed }
