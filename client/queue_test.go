package client

import "testing"

func TestCommandQueueFIFO(t *testing.T) {
	q := newCommandQueue(8)
	for i := 0; i < 3; i++ {
		q.push(command{kind: cmdPresence, presence: &Activity{Details: string(rune('a' + i))}})
	}
	for i := 0; i < 3; i++ {
		cmd, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: queue empty", i)
		}
		if want := string(rune('a' + i)); cmd.presence.Details != want {
			t.Errorf("pop %d: got %q, want %q", i, cmd.presence.Details, want)
		}
	}
	if _, ok := q.pop(); ok {
		t.Errorf("pop on empty queue succeeded")
	}
}

func TestCommandQueueDropsOldestWhenFull(t *testing.T) {
	q := newCommandQueue(2)
	if d := q.push(command{kind: cmdPresence, presence: &Activity{Details: "one"}}); d != 0 {
		t.Fatalf("unexpected drop on first push")
	}
	if d := q.push(command{kind: cmdPresence, presence: &Activity{Details: "two"}}); d != 0 {
		t.Fatalf("unexpected drop on second push")
	}
	if d := q.push(command{kind: cmdPresence, presence: &Activity{Details: "three"}}); d != 1 {
		t.Fatalf("expected one drop, got %d", d)
	}
	cmd, _ := q.pop()
	if cmd.presence.Details != "two" {
		t.Errorf("oldest survivor: got %q, want %q", cmd.presence.Details, "two")
	}
}

func TestCommandQueueUnbounded(t *testing.T) {
	q := newCommandQueue(0)
	for i := 0; i < 1000; i++ {
		if d := q.push(command{kind: cmdSubscribe}); d != 0 {
			t.Fatalf("unbounded queue dropped at %d", i)
		}
	}
	if q.len() != 1000 {
		t.Errorf("len: got %d, want 1000", q.len())
	}
}

func TestMessageQueueDrainOrder(t *testing.T) {
	q := newMessageQueue(8)
	q.push(&JoinMessage{header: newHeader(), Secret: "s1"})
	q.push(&JoinMessage{header: newHeader(), Secret: "s2"})

	msgs := q.drain()
	if len(msgs) != 2 {
		t.Fatalf("drained %d messages, want 2", len(msgs))
	}
	if msgs[0].(*JoinMessage).Secret != "s1" || msgs[1].(*JoinMessage).Secret != "s2" {
		t.Errorf("drain out of order")
	}
	if q.len() != 0 {
		t.Errorf("queue not empty after drain")
	}
}

func TestMessageQueueBound(t *testing.T) {
	q := newMessageQueue(2)
	q.push(&JoinMessage{header: newHeader(), Secret: "old"})
	q.push(&JoinMessage{header: newHeader(), Secret: "mid"})
	if d := q.push(&JoinMessage{header: newHeader(), Secret: "new"}); d != 1 {
		t.Fatalf("expected one drop, got %d", d)
	}
	msgs := q.drain()
	if msgs[0].(*JoinMessage).Secret != "mid" {
		t.Errorf("oldest message should have been discarded")
	}
}
