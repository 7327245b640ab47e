// Package client implements a Rich Presence client for the local Discord
// desktop application. A background worker owns the IPC pipe and keeps
// the connection alive; the Client facade is safe to call from any
// goroutine and never blocks on I/O.
package client

import (
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ffx64/discord-presence-go/internal/metrics"
)

const defaultQueueSize = 128

// Option configures a Client at construction time.
type Option func(*Client)

// WithPipe pins the endpoint index instead of probing 0 through 9.
func WithPipe(pipe int) Option {
	return func(c *Client) { c.cfg.Pipe = pipe }
}

// WithLogger routes the client's logging through log. The default
// logger discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithAutoEvents controls dispatch: enabled (the default) runs
// callbacks on the engine worker as messages arrive; disabled queues
// messages until Invoke is called.
func WithAutoEvents(enabled bool) Option {
	return func(c *Client) { c.autoEvents = enabled }
}

// WithTransport substitutes the pipe transport. Used by tests.
func WithTransport(tp Transport) Option {
	return func(c *Client) { c.tp = tp }
}

// WithQueueSize bounds the outbound command queue. Zero means
// unbounded.
func WithQueueSize(n int) Option {
	return func(c *Client) { c.queueBound = n }
}

// WithMessageQueueSize bounds the inbound message queue used in pull
// mode. Zero means unbounded.
func WithMessageQueueSize(n int) Option {
	return func(c *Client) { c.msgQueueBound = n }
}

// WithURIScheme records whether a join/spectate URI scheme has been
// registered with the OS for this application. Subscriptions and
// secrets are refused without it.
func WithURIScheme(registered bool) Option {
	return func(c *Client) { c.uriRegistered = registered }
}

// WithShutdownOnly makes Dispose send a Close frame with a reason
// instead of just dropping the pipe.
func WithShutdownOnly(enabled bool) Option {
	return func(c *Client) { c.cfg.ShutdownOnly = enabled }
}

// WithWorkerName names the engine worker in log output.
func WithWorkerName(name string) Option {
	return func(c *Client) { c.cfg.WorkerName = name }
}

// Client is the public surface of the library. One Client maintains at
// most one connection to Discord.
type Client struct {
	mu sync.Mutex

	appID         string
	pid           int
	cfg           engineConfig
	log           zerolog.Logger
	autoEvents    bool
	uriRegistered bool
	queueBound    int
	msgQueueBound int

	tp  Transport
	eng *engine
	out *commandQueue
	in  *messageQueue

	initialized bool
	disposed    bool

	presence     *Activity
	user         *User
	config       *Configuration
	subscription EventType

	onReady                 func(*ReadyMessage)
	onClose                 func(*CloseMessage)
	onError                 func(*ErrorMessage)
	onPresenceUpdate        func(*PresenceMessage)
	onSubscribe             func(*SubscribeMessage)
	onUnsubscribe           func(*UnsubscribeMessage)
	onJoin                  func(*JoinMessage)
	onSpectate              func(*SpectateMessage)
	onJoinRequest           func(*JoinRequestMessage)
	onConnectionEstablished func(*ConnectionEstablishedMessage)
	onConnectionFailed      func(*ConnectionFailedMessage)
}

// New creates a client for the given Discord application id. The id
// must be non-empty; everything else defaults: probe every pipe,
// auto events on, queues bounded at 128, silent logger.
func New(applicationID string, opts ...Option) (*Client, error) {
	if applicationID == "" {
		return nil, ErrInvalidConfiguration
	}
	c := &Client{
		appID:         applicationID,
		pid:           os.Getpid(),
		cfg:           defaultEngineConfig(),
		log:           zerolog.Nop(),
		autoEvents:    true,
		queueBound:    defaultQueueSize,
		msgQueueBound: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.AppID = applicationID
	c.cfg.PID = c.pid
	return c, nil
}

// Callback registration. Set these before Initialize to avoid racing
// the engine worker.

func (c *Client) OnReady(fn func(*ReadyMessage))             { c.onReady = fn }
func (c *Client) OnClose(fn func(*CloseMessage))             { c.onClose = fn }
func (c *Client) OnError(fn func(*ErrorMessage))             { c.onError = fn }
func (c *Client) OnPresenceUpdate(fn func(*PresenceMessage)) { c.onPresenceUpdate = fn }
func (c *Client) OnSubscribe(fn func(*SubscribeMessage))     { c.onSubscribe = fn }
func (c *Client) OnUnsubscribe(fn func(*UnsubscribeMessage)) { c.onUnsubscribe = fn }
func (c *Client) OnJoin(fn func(*JoinMessage))               { c.onJoin = fn }
func (c *Client) OnSpectate(fn func(*SpectateMessage))       { c.onSpectate = fn }
func (c *Client) OnJoinRequest(fn func(*JoinRequestMessage)) { c.onJoinRequest = fn }
func (c *Client) OnConnectionEstablished(fn func(*ConnectionEstablishedMessage)) {
	c.onConnectionEstablished = fn
}
func (c *Client) OnConnectionFailed(fn func(*ConnectionFailedMessage)) {
	c.onConnectionFailed = fn
}

// Initialize starts the engine worker. The client begins connecting
// immediately.
func (c *Client) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if c.initialized {
		return ErrAlreadyInitialized
	}

	c.out = newCommandQueue(c.queueBound)
	c.in = newMessageQueue(c.msgQueueBound)
	tp := c.tp
	if tp == nil {
		tp = newPipeTransport()
	}
	eng := newEngine(c.cfg, c.log, tp, c.out, c.in)
	eng.onReady = c.resync
	if c.autoEvents {
		eng.deliver = c.dispatchQueued
	}
	c.eng = eng
	c.initialized = true
	go eng.run()
	return nil
}

// Deinitialize stops the engine gracefully. The client can be
// initialized again afterwards; stored presence and subscription
// survive.
func (c *Client) Deinitialize() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initialized {
		c.mu.Unlock()
		return ErrUninitialized
	}
	eng := c.eng
	c.eng = nil
	c.initialized = false
	c.mu.Unlock()

	// Join outside the lock: the worker's final tick may call back
	// into the client.
	eng.stop()
	return nil
}

// Dispose is the idempotent terminal stop.
func (c *Client) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	eng := c.eng
	c.eng = nil
	c.initialized = false
	c.mu.Unlock()

	if eng != nil {
		eng.stop()
	}
}

// State reports the engine connection state.
func (c *Client) State() State {
	c.mu.Lock()
	eng := c.eng
	c.mu.Unlock()
	if eng == nil {
		return StateDisconnected
	}
	return eng.getState()
}

// SetPresence publishes a rich presence record; nil clears it. Called
// before Initialize it only stores the state, which the engine
// synchronizes once Ready.
func (c *Client) SetPresence(p *Activity) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if err := c.storePresenceLocked(p); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.initialized {
		c.log.Debug().Msg("presence stored; will synchronize after initialize")
		c.mu.Unlock()
		return nil
	}
	snapshot := c.presence.Clone()
	c.mu.Unlock()

	c.enqueue(command{kind: cmdPresence, presence: snapshot})
	return nil
}

// storePresenceLocked validates p and replaces the current presence
// with a deep copy. Caller holds c.mu.
func (c *Client) storePresenceLocked(p *Activity) error {
	if p == nil {
		c.presence = nil
		return nil
	}
	clone := p.Clone()
	warnings, err := clone.validate()
	if err != nil {
		return err
	}
	if clone.Secrets != nil && !c.uriRegistered {
		c.log.Error().Msg("presence carries secrets but no uri scheme is registered")
		return ErrBadPresence
	}
	for _, w := range warnings {
		c.log.Warn().Msg(w)
	}
	if clone.Party != nil && clone.Party.ID == "" && clone.Party.Size > 0 {
		clone.Party.ID = uuid.NewString()
	}
	c.presence = clone
	return nil
}

// updatePresence is the shared read-modify-write behind the Update*
// helpers. Unlike SetPresence these require a running engine.
func (c *Client) updatePresence(mutate func(*Activity)) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initialized {
		c.mu.Unlock()
		return ErrUninitialized
	}
	next := c.presence.Clone()
	if next == nil {
		next = &Activity{}
	}
	mutate(next)
	if err := c.storePresenceLocked(next); err != nil {
		c.mu.Unlock()
		return err
	}
	snapshot := c.presence.Clone()
	c.mu.Unlock()

	c.enqueue(command{kind: cmdPresence, presence: snapshot})
	return nil
}

func (c *Client) UpdateState(state string) error {
	return c.updatePresence(func(a *Activity) { a.State = state })
}

func (c *Client) UpdateDetails(details string) error {
	return c.updatePresence(func(a *Activity) { a.Details = details })
}

func (c *Client) UpdateType(t ActivityType) error {
	return c.updatePresence(func(a *Activity) { a.Type = t })
}

func (c *Client) UpdateParty(id string, size, max int) error {
	return c.updatePresence(func(a *Activity) { a.Party = &Party{ID: id, Size: size, Max: max} })
}

// UpdatePartySize adjusts the sizes of the existing party, or creates
// one when none is set.
func (c *Client) UpdatePartySize(size, max int) error {
	return c.updatePresence(func(a *Activity) {
		if a.Party == nil {
			a.Party = &Party{}
		}
		a.Party.Size = size
		a.Party.Max = max
	})
}

func (c *Client) UpdateLargeAsset(key, text string) error {
	return c.updatePresence(func(a *Activity) {
		if a.Assets == nil {
			a.Assets = &Assets{}
		}
		a.Assets.LargeImage = key
		a.Assets.LargeText = text
		a.Assets.LargeImageID = 0
	})
}

func (c *Client) UpdateSmallAsset(key, text string) error {
	return c.updatePresence(func(a *Activity) {
		if a.Assets == nil {
			a.Assets = &Assets{}
		}
		a.Assets.SmallImage = key
		a.Assets.SmallText = text
		a.Assets.SmallImageID = 0
	})
}

func (c *Client) UpdateSecrets(join, spectate, match string) error {
	return c.updatePresence(func(a *Activity) {
		a.Secrets = &Secrets{Join: join, Spectate: spectate, Match: match}
	})
}

func (c *Client) UpdateStartTime(start uint64) error {
	return c.updatePresence(func(a *Activity) {
		if a.Timestamps == nil {
			a.Timestamps = &Timestamps{}
		}
		a.Timestamps.Start = start
	})
}

func (c *Client) UpdateEndTime(end uint64) error {
	return c.updatePresence(func(a *Activity) {
		if a.Timestamps == nil {
			a.Timestamps = &Timestamps{}
		}
		a.Timestamps.End = end
	})
}

func (c *Client) UpdateClearTime() error {
	return c.updatePresence(func(a *Activity) { a.Timestamps = nil })
}

// SynchronizeState re-sends the stored presence and subscription, as
// after a reconnect.
func (c *Client) SynchronizeState() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initialized {
		c.mu.Unlock()
		return ErrUninitialized
	}
	c.mu.Unlock()
	c.resync()
	return nil
}

// resync enqueues the stored presence and every subscribed event. Also
// invoked by the engine when a handshake completes.
func (c *Client) resync() {
	c.mu.Lock()
	p := c.presence.Clone()
	sub := c.subscription
	uriOK := c.uriRegistered
	initialized := c.initialized
	c.mu.Unlock()
	if !initialized {
		return
	}

	if p != nil {
		c.enqueue(command{kind: cmdPresence, presence: p})
	}
	if uriOK {
		for _, bit := range sub.split() {
			c.enqueue(command{kind: cmdSubscribe, event: bit})
		}
	}
}

// Subscribe adds events to the subscription set.
func (c *Client) Subscribe(events EventType) error {
	c.mu.Lock()
	mask := c.subscription | events
	c.mu.Unlock()
	return c.SetSubscription(mask)
}

// Unsubscribe removes events from the subscription set.
func (c *Client) Unsubscribe(events EventType) error {
	c.mu.Lock()
	mask := c.subscription &^ events
	c.mu.Unlock()
	return c.SetSubscription(mask)
}

// SetSubscription replaces the subscription set, sending SUBSCRIBE for
// newly set bits and UNSUBSCRIBE for newly cleared ones. An empty diff
// is a no-op. Requires a registered URI scheme: Discord launches the
// application through it for join and spectate.
func (c *Client) SetSubscription(mask EventType) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if mask != EventNone && !c.uriRegistered {
		c.mu.Unlock()
		return ErrInvalidConfiguration
	}
	added := mask &^ c.subscription
	removed := c.subscription &^ mask
	if added == EventNone && removed == EventNone {
		c.mu.Unlock()
		return nil
	}
	c.subscription = mask
	initialized := c.initialized
	c.mu.Unlock()

	if !initialized {
		// Intent is stored; the engine pushes it after Ready.
		return nil
	}
	for _, bit := range added.split() {
		c.enqueue(command{kind: cmdSubscribe, event: bit})
	}
	for _, bit := range removed.split() {
		c.enqueue(command{kind: cmdSubscribe, event: bit, unsub: true})
	}
	return nil
}

// Respond answers a join request.
func (c *Client) Respond(request *JoinRequestMessage, accept bool) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initialized {
		c.mu.Unlock()
		return ErrUninitialized
	}
	c.mu.Unlock()

	c.enqueue(command{
		kind:   cmdRespond,
		userID: strconv.FormatUint(request.User.ID, 10),
		accept: accept,
	})
	return nil
}

// Invoke drains the message queue on the caller's goroutine, applies
// internal state updates, runs callbacks in arrival order and returns
// the messages. With auto events enabled there is nothing to pull and
// Invoke returns nil.
func (c *Client) Invoke() []Message {
	c.mu.Lock()
	if c.autoEvents {
		c.mu.Unlock()
		c.log.Warn().Msg("invoke called with auto events enabled; nothing to drain")
		return nil
	}
	in := c.in
	c.mu.Unlock()
	if in == nil {
		return nil
	}

	msgs := in.drain()
	for _, m := range msgs {
		c.processMessage(m)
	}
	return msgs
}

// dispatchQueued is the auto-events delivery path, run on the engine
// worker after every tick.
func (c *Client) dispatchQueued() {
	for _, m := range c.in.drain() {
		c.processMessage(m)
	}
}

// processMessage folds one message into client state, then hands it to
// the matching callback. Callbacks run outside the client mutex.
func (c *Client) processMessage(m Message) {
	c.mu.Lock()
	switch msg := m.(type) {
	case *ReadyMessage:
		u := msg.User
		cfg := msg.Configuration
		c.user = &u
		c.config = &cfg
	case *PresenceMessage:
		if msg.Presence != nil {
			if c.presence == nil {
				c.presence = msg.Presence.Clone()
			} else {
				c.presence.Merge(msg.Presence)
			}
		}
	case *SubscribeMessage:
		c.subscription |= msg.Event
	case *UnsubscribeMessage:
		c.subscription &^= msg.Event
	}
	c.mu.Unlock()

	switch msg := m.(type) {
	case *ReadyMessage:
		if c.onReady != nil {
			c.onReady(msg)
		}
	case *CloseMessage:
		if c.onClose != nil {
			c.onClose(msg)
		}
	case *ErrorMessage:
		if c.onError != nil {
			c.onError(msg)
		}
	case *PresenceMessage:
		if c.onPresenceUpdate != nil {
			c.onPresenceUpdate(msg)
		}
	case *SubscribeMessage:
		if c.onSubscribe != nil {
			c.onSubscribe(msg)
		}
	case *UnsubscribeMessage:
		if c.onUnsubscribe != nil {
			c.onUnsubscribe(msg)
		}
	case *JoinMessage:
		if c.onJoin != nil {
			c.onJoin(msg)
		}
	case *SpectateMessage:
		if c.onSpectate != nil {
			c.onSpectate(msg)
		}
	case *JoinRequestMessage:
		if c.onJoinRequest != nil {
			c.onJoinRequest(msg)
		}
	case *ConnectionEstablishedMessage:
		if c.onConnectionEstablished != nil {
			c.onConnectionEstablished(msg)
		}
	case *ConnectionFailedMessage:
		if c.onConnectionFailed != nil {
			c.onConnectionFailed(msg)
		}
	}
}

// enqueue hands a command to the engine. A full queue drops the oldest
// command and surfaces the loss as an ErrorMessage; the caller is never
// blocked.
func (c *Client) enqueue(cmd command) {
	c.mu.Lock()
	out := c.out
	in := c.in
	eng := c.eng
	c.mu.Unlock()
	if out == nil {
		return
	}
	if dropped := out.push(cmd); dropped > 0 {
		metrics.QueueDropped("outbound")
		c.log.Warn().Int("dropped", dropped).Msg("outbound queue full; oldest command dropped")
		if in != nil {
			in.push(&ErrorMessage{header: newHeader(), Code: -1, Message: "outbound queue full; oldest command dropped"})
		}
	}
	if eng != nil {
		eng.wake()
	}
}

// CurrentPresence returns a deep copy of the stored presence, nil when
// none is set.
func (c *Client) CurrentPresence() *Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presence.Clone()
}

// CurrentUser returns the account the connected Discord client is
// logged in as, available after Ready.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Configuration returns the environment block from Ready.
func (c *Client) Configuration() *Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config == nil {
		return nil
	}
	cfg := *c.config
	return &cfg
}

// Subscription returns the current subscription bitset.
func (c *Client) Subscription() EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscription
}

// ApplicationID returns the app id the client was built with.
func (c *Client) ApplicationID() string {
	return c.appID
}

// PID returns the process id embedded in SET_ACTIVITY commands.
func (c *Client) PID() int {
	return c.pid
}
