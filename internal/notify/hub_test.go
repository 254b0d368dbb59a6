package notify

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/domain"
)

func newTestHub(buffer int) *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), buffer)
}

func statusEvent(conv, id string) domain.Event {
	return domain.NewStatusChanged(conv, id, id, domain.StatusRead)
}

func TestPublishReachesOnlyConversationSubscribers(t *testing.T) {
	hub := newTestHub(4)
	a1, _ := hub.Subscribe("a")
	a2, _ := hub.Subscribe("a")
	b, _ := hub.Subscribe("b")

	if n := hub.Publish("a", statusEvent("a", "m1")); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	for _, sub := range []*Subscription{a1, a2} {
		select {
		case ev := <-sub.Events():
			if ev.TargetID != "m1" {
				t.Fatalf("unexpected event %+v", ev)
			}
		default:
			t.Fatalf("expected event for subscriber of a")
		}
	}
	select {
	case ev := <-b.Events():
		t.Fatalf("subscriber of b received %+v", ev)
	default:
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	hub := newTestHub(4)
	if n := hub.Publish("a", statusEvent("a", "m1")); n != 0 {
		t.Fatalf("expected no deliveries, got %d", n)
	}
	sub, _ := hub.Subscribe("a")
	select {
	case ev := <-sub.Events():
		t.Fatalf("late subscriber received %+v", ev)
	default:
	}
}

func TestSlowSubscriberIsDroppedWithoutBlocking(t *testing.T) {
	hub := newTestHub(1)
	slow, _ := hub.Subscribe("a")
	fast, _ := hub.Subscribe("a")

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Publish("a", statusEvent("a", "m1"))
		<-fast.Events()
		hub.Publish("a", statusEvent("a", "m2"))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}

	if got := hub.Subscribers("a"); got != 1 {
		t.Fatalf("expected slow subscriber to be dropped, %d remain", got)
	}
	// the slow subscriber keeps what it buffered, then sees the channel close
	if ev, ok := <-slow.Events(); !ok || ev.TargetID != "m1" {
		t.Fatalf("expected buffered m1, got %+v (ok=%v)", ev, ok)
	}
	if _, ok := <-slow.Events(); ok {
		t.Fatalf("expected slow subscription to be closed")
	}
	if ev := <-fast.Events(); ev.TargetID != "m2" {
		t.Fatalf("expected fast subscriber to receive m2, got %+v", ev)
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	hub := newTestHub(4)
	sub, _ := hub.Subscribe("a")
	sub.Close()
	sub.Close()
	if hub.Subscribers("a") != 0 {
		t.Fatalf("expected no subscribers after close")
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected closed events channel")
	}

	other, _ := hub.Subscribe("b")
	hub.Close()
	if _, ok := <-other.Events(); ok {
		t.Fatalf("expected hub close to end subscriptions")
	}
	if _, err := hub.Subscribe("b"); !errors.Is(err, domain.ErrHubClosed) {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
}
