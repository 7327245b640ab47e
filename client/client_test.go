package client

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ffx64/discord-presence-go/internal/codec"
	"github.com/ffx64/discord-presence-go/wire"
)

func TestNewRequiresApplicationID(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	c, err := New("4242")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ApplicationID() != "4242" {
		t.Errorf("app id: %q", c.ApplicationID())
	}
	if c.PID() == 0 {
		t.Errorf("pid not recorded")
	}
}

func TestInitializeTwice(t *testing.T) {
	ft := newFakeTransport()
	ft.setConnectErr(errors.New("not running"))
	c := newTestClient(t, ft)
	defer c.Dispose()

	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Initialize(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize: %v", err)
	}
}

func TestSetPresenceBeforeInitializeIsStored(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Dispose()

	if err := c.SetPresence(&Activity{Details: "early bird"}); err != nil {
		t.Fatalf("SetPresence before Initialize: %v", err)
	}
	if got := c.CurrentPresence(); got == nil || got.Details != "early bird" {
		t.Fatalf("presence not stored: %+v", got)
	}

	// Once the engine reaches READY the stored presence goes out by
	// itself.
	bringUp(t, ft, c)
	env := awaitEnvelope(t, ft, wire.CommandSetActivity)
	raw, _ := codec.Marshal(env.Args)
	var args struct {
		Activity Activity `json:"activity"`
	}
	if err := codec.Unmarshal(raw, &args); err != nil {
		t.Fatalf("decode args: %v", err)
	}
	if args.Activity.Details != "early bird" {
		t.Errorf("synchronized presence: %+v", args.Activity)
	}
}

func TestSubscriptionIntentStoredBeforeInitialize(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft, WithURIScheme(true))
	defer c.Dispose()

	if err := c.Subscribe(EventJoin | EventSpectate); err != nil {
		t.Fatalf("Subscribe before Initialize: %v", err)
	}
	if got := c.Subscription(); got != EventJoin|EventSpectate {
		t.Fatalf("intent not stored: %s", got)
	}

	bringUp(t, ft, c)
	first := awaitEnvelope(t, ft, wire.CommandSubscribe)
	second := awaitEnvelope(t, ft, wire.CommandSubscribe)
	got := map[string]bool{first.Evt: true, second.Evt: true}
	if !got[wire.EventActivityJoin] || !got[wire.EventActivitySpectate] {
		t.Errorf("pushed subscriptions: %v", got)
	}
}

func TestUpdateHelpersRequireInitialize(t *testing.T) {
	c, err := New("4242")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := map[string]func() error{
		"UpdateState":     func() error { return c.UpdateState("s") },
		"UpdateDetails":   func() error { return c.UpdateDetails("d") },
		"UpdateParty":     func() error { return c.UpdateParty("p", 1, 2) },
		"UpdatePartySize": func() error { return c.UpdatePartySize(1, 2) },
		"UpdateLargeAsset": func() error {
			return c.UpdateLargeAsset("k", "t")
		},
		"UpdateSmallAsset": func() error {
			return c.UpdateSmallAsset("k", "t")
		},
		"UpdateSecrets":   func() error { return c.UpdateSecrets("j", "s", "m") },
		"UpdateStartTime": func() error { return c.UpdateStartTime(1) },
		"UpdateEndTime":   func() error { return c.UpdateEndTime(2) },
		"UpdateClearTime": func() error { return c.UpdateClearTime() },
	}
	for name, fn := range cases {
		if err := fn(); !errors.Is(err, ErrUninitialized) {
			t.Errorf("%s before Initialize: %v", name, err)
		}
	}
	if err := c.SynchronizeState(); !errors.Is(err, ErrUninitialized) {
		t.Errorf("SynchronizeState before Initialize: %v", err)
	}
}

func TestUpdateHelpersMutateAndResend(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Dispose()
	bringUp(t, ft, c)

	if err := c.UpdateDetails("round one"); err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	awaitEnvelope(t, ft, wire.CommandSetActivity)

	if err := c.UpdatePartySize(3, 2); err != nil {
		t.Fatalf("UpdatePartySize: %v", err)
	}
	env := awaitEnvelope(t, ft, wire.CommandSetActivity)
	raw, _ := codec.Marshal(env.Args)
	if want := `"size":[3,3]`; !strings.Contains(string(raw), want) {
		t.Errorf("serialized party %s does not contain %s", raw, want)
	}

	p := c.CurrentPresence()
	if p == nil || p.Details != "round one" || p.Party == nil {
		t.Fatalf("presence after updates: %+v", p)
	}
}

func TestSecretsRequireURIScheme(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Dispose()

	err := c.SetPresence(&Activity{
		Party:   &Party{ID: "p", Size: 1, Max: 2},
		Secrets: &Secrets{Join: "j"},
	})
	if !errors.Is(err, ErrBadPresence) {
		t.Fatalf("expected ErrBadPresence, got %v", err)
	}
	if c.CurrentPresence() != nil {
		t.Errorf("rejected presence was stored")
	}
}

func TestSecretsAllowedWithURIScheme(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft, WithURIScheme(true))
	defer c.Dispose()

	err := c.SetPresence(&Activity{
		Party:   &Party{ID: "p", Size: 1, Max: 2},
		Secrets: &Secrets{Join: "j"},
	})
	if err != nil {
		t.Fatalf("SetPresence with secrets: %v", err)
	}
}

func TestPartyGetsGeneratedID(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Dispose()

	if err := c.SetPresence(&Activity{Party: &Party{Size: 2, Max: 4}}); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}
	p := c.CurrentPresence()
	if p.Party.ID == "" {
		t.Errorf("party id was not generated")
	}
}

func TestSetPresenceValidationDoesNotMutateState(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Dispose()

	if err := c.SetPresence(&Activity{Details: "keep me"}); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}
	long := strings.Repeat("x", maxTextLen+1)
	if err := c.SetPresence(&Activity{Details: long}); !errors.Is(err, ErrStringOutOfRange) {
		t.Fatalf("expected ErrStringOutOfRange, got %v", err)
	}
	if got := c.CurrentPresence(); got == nil || got.Details != "keep me" {
		t.Errorf("failed validation clobbered stored presence: %+v", got)
	}
}

func TestSetSubscriptionEmptyDiffShortCircuits(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft, WithURIScheme(true))
	defer c.Dispose()
	bringUp(t, ft, c)

	if err := c.Subscribe(EventJoin); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	awaitEnvelope(t, ft, wire.CommandSubscribe)

	// Same mask again: nothing new reaches the wire.
	if err := c.SetSubscription(c.Subscription()); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	count := 0
	for _, fr := range ft.writtenFrames() {
		var env wire.Envelope
		if err := codec.Unmarshal(fr.Payload, &env); err == nil && env.Cmd == wire.CommandSubscribe {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate SUBSCRIBE went out: %d", count)
	}
}

func TestOutboundOverflowEmitsError(t *testing.T) {
	ft := newFakeTransport()
	ft.setConnectErr(errors.New("not running"))
	c := newTestClient(t, ft, WithQueueSize(2))
	defer c.Dispose()

	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	// Engine cannot connect, so the queue only fills.
	for i := 0; i < 4; i++ {
		if err := c.SetPresence(&Activity{Details: strings.Repeat("x", i+1)}); err != nil {
			t.Fatalf("SetPresence %d: %v", i, err)
		}
	}

	msgs := collect(t, c, func(msgs []Message) bool { return hasKind(msgs, KindError) })
	found := false
	for _, m := range msgs {
		if em, ok := m.(*ErrorMessage); ok && strings.Contains(em.Message, "queue full") {
			found = true
		}
	}
	if !found {
		t.Errorf("no queue-full error surfaced: %v", msgs)
	}
}

func TestCurrentPresenceReturnsCopy(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Dispose()

	if err := c.SetPresence(&Activity{Details: "original", Party: &Party{ID: "p", Size: 1, Max: 2}}); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}
	got := c.CurrentPresence()
	got.Details = "mutated"
	got.Party.Size = 9

	again := c.CurrentPresence()
	if again.Details != "original" || again.Party.Size != 1 {
		t.Errorf("getter leaked internal state: %+v", again)
	}
}

func TestUnixMilliseconds(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := UnixMilliseconds(at); got != uint64(at.UnixMilli()) {
		t.Errorf("got %d", got)
	}
	if got := UnixMilliseconds(time.Time{}); got != 0 {
		t.Errorf("zero time: got %d", got)
	}
}
