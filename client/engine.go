package client

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ffx64/discord-presence-go/internal/codec"
	"github.com/ffx64/discord-presence-go/internal/metrics"
	"github.com/ffx64/discord-presence-go/transport/ipc"
	"github.com/ffx64/discord-presence-go/wire"
)

// State of the connection engine.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// engineConfig carries everything the worker needs. The timing knobs
// exist so tests can shrink the schedule; production code keeps the
// defaults.
type engineConfig struct {
	AppID        string
	PID          int
	Pipe         int
	WorkerName   string
	ShutdownOnly bool

	TickInterval     time.Duration
	BackoffMin       time.Duration
	BackoffMax       time.Duration
	KeepAlive        time.Duration
	PingTimeout      time.Duration
	HandshakeTimeout time.Duration
	NonceExpiry      time.Duration
	DrainPerTick     int
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		Pipe:             -1,
		WorkerName:       "Discord RPC",
		TickInterval:     50 * time.Millisecond,
		BackoffMin:       500 * time.Millisecond,
		BackoffMax:       60 * time.Second,
		KeepAlive:        15 * time.Second,
		PingTimeout:      10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		NonceExpiry:      30 * time.Second,
		DrainPerTick:     10,
	}
}

// pendingCommand tracks an outstanding nonce so acks can be correlated
// back to the command that caused them.
type pendingCommand struct {
	cmd    string
	event  EventType
	issued time.Time
}

// engine owns the transport and runs the connection state machine on a
// single worker goroutine. Nothing else touches the pipe.
type engine struct {
	cfg engineConfig
	log zerolog.Logger
	tp  Transport
	out *commandQueue
	in  *messageQueue

	// deliver, when non-nil, drains the inbound queue into the client's
	// callbacks at the end of every tick (auto-events mode).
	deliver func()

	// onReady re-issues the stored presence and subscription after a
	// handshake completes.
	onReady func()

	stopCh chan struct{}
	wakeCh chan struct{}
	doneCh chan struct{}

	state atomic.Int32

	bo          *backoff
	pending     map[string]pendingCommand
	nextAttempt time.Time
	hsDeadline  time.Time
	lastRx      time.Time
	lastTx      time.Time

	pingSeq         uint64
	pingSentAt      time.Time
	pingOutstanding bool
}

func newEngine(cfg engineConfig, log zerolog.Logger, tp Transport, out *commandQueue, in *messageQueue) *engine {
	return &engine{
		cfg:     cfg,
		log:     log.With().Str("worker", cfg.WorkerName).Logger(),
		tp:      tp,
		out:     out,
		in:      in,
		stopCh:  make(chan struct{}),
		wakeCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
		bo:      newBackoff(cfg.BackoffMin, cfg.BackoffMax),
		pending: make(map[string]pendingCommand),
	}
}

func (e *engine) getState() State  { return State(e.state.Load()) }
func (e *engine) setState(s State) { e.state.Store(int32(s)) }

// wake nudges the worker out of its tick sleep; called whenever a
// command is enqueued.
func (e *engine) wake() {
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

// stop signals the worker and joins it.
func (e *engine) stop() {
	close(e.stopCh)
	<-e.doneCh
}

// run is the worker loop. One goroutine per engine.
func (e *engine) run() {
	defer close(e.doneCh)
	e.log.Debug().Msg("engine worker started")
	for {
		select {
		case <-e.stopCh:
			e.shutdown()
			return
		default:
		}

		e.tick()

		select {
		case <-e.stopCh:
			e.shutdown()
			return
		case <-e.wakeCh:
		case <-time.After(e.cfg.TickInterval):
		}
	}
}

func (e *engine) tick() {
	now := time.Now()
	switch e.getState() {
	case StateDisconnected, StateConnecting:
		if now.Before(e.nextAttempt) {
			break
		}
		e.establish(now)
	case StateHandshaking:
		e.pumpInbound()
		if e.getState() == StateHandshaking && time.Now().After(e.hsDeadline) {
			e.recycle("handshake timed out", nil)
		}
	case StateConnected:
		e.pumpOutbound()
		if e.getState() == StateConnected {
			e.pumpInbound()
		}
		if e.getState() == StateConnected {
			e.keepAlive(time.Now())
		}
		e.sweepNonces(time.Now())
	}

	if e.deliver != nil {
		e.deliver()
	}
}

// establish runs the pipe scan and, on success, opens the handshake.
func (e *engine) establish(now time.Time) {
	e.setState(StateConnecting)
	if err := e.tp.Connect(e.cfg.Pipe); err != nil {
		e.emit(&ConnectionFailedMessage{header: newHeader(), Pipe: e.cfg.Pipe})
		delay := e.bo.next()
		e.nextAttempt = now.Add(delay)
		e.setState(StateDisconnected)
		e.log.Warn().Dur("backoff", delay).Err(err).Msg("discord endpoint not reachable; retrying")
		return
	}
	metrics.Connect()
	e.log.Info().Int("pipe", e.tp.Pipe()).Msg("connected to discord ipc")

	e.lastRx = now
	e.lastTx = now
	e.pingOutstanding = false
	if err := e.writeFrame(ipc.OpHandshake, wire.Handshake{Version: 1, ClientID: e.cfg.AppID}); err != nil {
		e.recycle("handshake write failed", err)
		return
	}
	e.setState(StateHandshaking)
	e.hsDeadline = now.Add(e.cfg.HandshakeTimeout)
}

// pumpOutbound drains up to DrainPerTick commands in submission order.
func (e *engine) pumpOutbound() {
	for i := 0; i < e.cfg.DrainPerTick; i++ {
		cmd, ok := e.out.pop()
		if !ok {
			return
		}
		env := e.envelopeFor(cmd)
		if env == nil {
			continue
		}
		if err := e.writeFrame(ipc.OpFrame, env); err != nil {
			e.recycle("command write failed", err)
			return
		}
	}
}

// envelopeFor converts a queued command to its wire envelope and records
// the nonce for ack correlation.
func (e *engine) envelopeFor(cmd command) *wire.Envelope {
	nonce := wire.NextNonce()
	env := &wire.Envelope{Nonce: nonce}
	switch cmd.kind {
	case cmdPresence:
		env.Cmd = wire.CommandSetActivity
		args := wire.SetActivityArgs{PID: e.cfg.PID}
		if cmd.presence != nil {
			args.Activity = cmd.presence
		}
		env.Args = args
	case cmdSubscribe:
		if cmd.unsub {
			env.Cmd = wire.CommandUnsubscribe
		} else {
			env.Cmd = wire.CommandSubscribe
		}
		env.Evt = cmd.event.serverEvent()
	case cmdRespond:
		if cmd.accept {
			env.Cmd = wire.CommandSendActivityJoinInvite
		} else {
			env.Cmd = wire.CommandCloseActivityJoinRequest
		}
		env.Args = wire.RespondArgs{UserID: cmd.userID}
	default:
		return nil
	}
	e.pending[nonce] = pendingCommand{cmd: env.Cmd, event: cmd.event, issued: time.Now()}
	return env
}

// pumpInbound decodes every buffered frame and dispatches by opcode.
func (e *engine) pumpInbound() {
	for {
		f, err := e.tp.ReadFrame()
		if err != nil {
			e.recycle("transport read failed", err)
			return
		}
		if f == nil {
			return
		}
		e.lastRx = time.Now()
		metrics.FrameReceived(f.Op.String())

		switch f.Op {
		case ipc.OpPing:
			// Echo the payload back verbatim.
			if err := e.writeRaw(ipc.Frame{Op: ipc.OpPong, Payload: f.Payload}); err != nil {
				e.recycle("pong write failed", err)
				return
			}
		case ipc.OpPong:
			e.pingOutstanding = false
		case ipc.OpClose:
			var closed wire.ClosedEvent
			_ = codec.Unmarshal(f.Payload, &closed)
			e.emit(&CloseMessage{header: newHeader(), Code: closed.Code, Reason: closed.Message})
			e.recycleQuiet()
			return
		case ipc.OpFrame:
			e.handleEnvelope(f.Payload)
			if e.getState() == StateDisconnected {
				return
			}
		default:
			e.log.Debug().Stringer("opcode", f.Op).Msg("ignoring unexpected opcode")
		}
	}
}

// handleEnvelope interprets one OpFrame payload. Malformed JSON is
// logged and skipped; it does not tear the connection down.
func (e *engine) handleEnvelope(payload []byte) {
	var env wire.Envelope
	if err := codec.Unmarshal(payload, &env); err != nil {
		e.log.Warn().Err(err).Msg("dropping malformed envelope")
		return
	}

	if env.Cmd == wire.CommandDispatch {
		e.handleDispatch(env)
		return
	}

	p, ok := e.pending[env.Nonce]
	if !ok || p.cmd != env.Cmd {
		e.log.Debug().Str("cmd", env.Cmd).Str("nonce", env.Nonce).Msg("unmatched command ack")
		return
	}
	delete(e.pending, env.Nonce)

	if env.Evt == wire.EventError {
		var ed wire.ErrorData
		_ = codec.Unmarshal(env.Data, &ed)
		e.emit(&ErrorMessage{header: newHeader(), Code: ed.Code, Message: ed.Message})
		return
	}

	switch p.cmd {
	case wire.CommandSetActivity:
		var act Activity
		if len(env.Data) > 0 {
			if err := codec.Unmarshal(env.Data, &act); err != nil {
				e.log.Warn().Err(err).Msg("undecodable SET_ACTIVITY ack")
				return
			}
		}
		e.emit(&PresenceMessage{header: newHeader(), Presence: &act})
	case wire.CommandSubscribe:
		e.emit(&SubscribeMessage{header: newHeader(), Event: p.event})
	case wire.CommandUnsubscribe:
		e.emit(&UnsubscribeMessage{header: newHeader(), Event: p.event})
	}
}

// handleDispatch interprets a DISPATCH envelope: the server events.
func (e *engine) handleDispatch(env wire.Envelope) {
	switch env.Evt {
	case wire.EventReady:
		var ready struct {
			Version       int           `json:"v"`
			Configuration Configuration `json:"config"`
			User          User          `json:"user"`
		}
		if err := codec.Unmarshal(env.Data, &ready); err != nil {
			e.log.Warn().Err(err).Msg("undecodable READY payload")
			return
		}
		e.setState(StateConnected)
		e.bo.reset()
		e.emit(&ConnectionEstablishedMessage{header: newHeader(), Pipe: e.tp.Pipe()})
		e.emit(&ReadyMessage{header: newHeader(), Version: ready.Version, Configuration: ready.Configuration, User: ready.User})
		e.log.Info().Str("user", ready.User.Username).Msg("handshake complete")
		if e.onReady != nil {
			e.onReady()
		}
	case wire.EventError:
		var ed wire.ErrorData
		_ = codec.Unmarshal(env.Data, &ed)
		e.emit(&ErrorMessage{header: newHeader(), Code: ed.Code, Message: ed.Message})
	case wire.EventActivityJoin:
		e.emit(&JoinMessage{header: newHeader(), Secret: secretOf(env.Data)})
	case wire.EventActivitySpectate:
		e.emit(&SpectateMessage{header: newHeader(), Secret: secretOf(env.Data)})
	case wire.EventActivityJoinRequest:
		var data struct {
			User User `json:"user"`
		}
		if err := codec.Unmarshal(env.Data, &data); err != nil {
			e.log.Warn().Err(err).Msg("undecodable join request")
			return
		}
		e.emit(&JoinRequestMessage{header: newHeader(), User: data.User})
	default:
		e.log.Debug().Str("evt", env.Evt).Msg("ignoring unknown dispatch event")
	}
}

func secretOf(data []byte) string {
	var d struct {
		Secret string `json:"secret"`
	}
	_ = codec.Unmarshal(data, &d)
	return d.Secret
}

// keepAlive pings an idle connection and recycles one whose ping went
// unanswered.
func (e *engine) keepAlive(now time.Time) {
	if e.pingOutstanding {
		if now.Sub(e.pingSentAt) > e.cfg.PingTimeout {
			e.recycle("keep-alive timed out", nil)
		}
		return
	}
	idle := now.Sub(e.lastRx)
	if tx := now.Sub(e.lastTx); tx < idle {
		idle = tx
	}
	if idle <= e.cfg.KeepAlive {
		return
	}
	e.pingSeq++
	if err := e.writeFrame(ipc.OpPing, wire.Ping{Seq: e.pingSeq}); err != nil {
		e.recycle("ping write failed", err)
		return
	}
	metrics.Ping()
	e.pingOutstanding = true
	e.pingSentAt = now
}

// sweepNonces expires ack correlation entries that never got answered.
func (e *engine) sweepNonces(now time.Time) {
	for nonce, p := range e.pending {
		if now.Sub(p.issued) > e.cfg.NonceExpiry {
			delete(e.pending, nonce)
		}
	}
}

// recycle drops the connection after a failure, emits Close and lines
// up a reconnect attempt.
func (e *engine) recycle(reason string, err error) {
	e.emit(&CloseMessage{header: newHeader(), Reason: reason})
	e.recycleQuiet()
	e.log.Warn().Err(err).Str("reason", reason).Msg("connection recycled")
}

// recycleQuiet is recycle without the Close message, for paths that
// already emitted one.
func (e *engine) recycleQuiet() {
	_ = e.tp.Close()
	metrics.Reconnect()
	e.pingOutstanding = false
	e.setState(StateDisconnected)
	e.nextAttempt = time.Time{}
}

// shutdown is the terminal path: optional graceful close, then join.
func (e *engine) shutdown() {
	e.setState(StateDisconnecting)
	if e.tp.Connected() {
		if e.cfg.ShutdownOnly {
			_ = e.writeFrame(ipc.OpClose, wire.CloseReason{PID: e.cfg.PID, Reason: "client shutting down"})
		}
		_ = e.tp.Close()
	}
	e.out.clear()
	e.emit(&CloseMessage{header: newHeader(), Reason: "engine stopped"})
	if e.deliver != nil {
		e.deliver()
	}
	e.setState(StateDisconnected)
	e.log.Debug().Msg("engine worker stopped")
}

// writeFrame marshals payload and writes one frame.
func (e *engine) writeFrame(op ipc.Opcode, payload any) error {
	body, err := codec.Marshal(payload)
	if err != nil {
		return err
	}
	return e.writeRaw(ipc.Frame{Op: op, Payload: body})
}

func (e *engine) writeRaw(f ipc.Frame) error {
	if err := e.tp.WriteFrame(f); err != nil {
		return err
	}
	e.lastTx = time.Now()
	metrics.FrameSent(f.Op.String())
	return nil
}

// emit queues an inbound message for the client.
func (e *engine) emit(m Message) {
	if dropped := e.in.push(m); dropped > 0 {
		metrics.QueueDropped("inbound")
		e.log.Warn().Int("dropped", dropped).Msg("inbound queue full; oldest messages discarded")
	}
}
