package realtime

import (
	"context"
	"errors"
	"testing"
)

type fakeSender struct {
	sent     []any
	writable bool
	failNext bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{writable: true}
}

func (s *fakeSender) Send(ctx context.Context, v any) error {
	if s.failNext {
		return errors.New("write failed")
	}
	s.sent = append(s.sent, v)
	return nil
}

func (s *fakeSender) Writable() bool { return s.writable }

func TestBroadcastWithNoSubscribersIsNoOp(t *testing.T) {
	h := NewHub(nil)
	if sent := h.Broadcast("lonely-shop.myshopify.com", map[string]string{"hello": "world"}); sent != 0 {
		t.Fatalf("sent=%d, want 0", sent)
	}
}

func TestBroadcastReachesOnlyTheShopsOwnConnections(t *testing.T) {
	h := NewHub(nil)
	a := newFakeSender()
	b := newFakeSender()
	other := newFakeSender()
	h.register("shop-a.myshopify.com", a)
	h.register("shop-a.myshopify.com", b)
	h.register("shop-b.myshopify.com", other)

	sent := h.Broadcast("shop-a.myshopify.com", "payload")
	if sent != 2 {
		t.Fatalf("sent=%d, want 2", sent)
	}
	if len(other.sent) != 0 {
		t.Fatalf("other shop received %d messages, want 0", len(other.sent))
	}

	env, ok := a.sent[0].(Envelope)
	if !ok {
		t.Fatalf("payload type %T, want Envelope", a.sent[0])
	}
	if env.Type != "update" {
		t.Fatalf("envelope type=%q, want update", env.Type)
	}
	if env.Data != "payload" {
		t.Fatalf("envelope data=%v, want payload", env.Data)
	}
}

func TestBroadcastSkipsNonWritableConnections(t *testing.T) {
	h := NewHub(nil)
	open := newFakeSender()
	closing := newFakeSender()
	closing.writable = false
	h.register("shop.myshopify.com", open)
	h.register("shop.myshopify.com", closing)

	if sent := h.Broadcast("shop.myshopify.com", "x"); sent != 1 {
		t.Fatalf("sent=%d, want 1", sent)
	}
	if len(closing.sent) != 0 {
		t.Fatalf("closing connection received %d messages, want 0", len(closing.sent))
	}
	// Skipped, not detached.
	if h.SubscriberCount("shop.myshopify.com") != 2 {
		t.Fatalf("subscriber count=%d, want 2", h.SubscriberCount("shop.myshopify.com"))
	}
}

func TestBroadcastDetachesFailedConnections(t *testing.T) {
	h := NewHub(nil)
	broken := newFakeSender()
	broken.failNext = true
	h.register("shop.myshopify.com", broken)

	if sent := h.Broadcast("shop.myshopify.com", "x"); sent != 0 {
		t.Fatalf("sent=%d, want 0", sent)
	}
	if h.SubscriberCount("shop.myshopify.com") != 0 {
		t.Fatalf("failed connection still registered")
	}
}

func TestUnregisterPrunesEmptyShopEntry(t *testing.T) {
	h := NewHub(nil)
	s := newFakeSender()
	h.register("shop.myshopify.com", s)
	h.unregister("shop.myshopify.com", s)

	h.mu.Lock()
	_, dangling := h.subscribers["shop.myshopify.com"]
	h.mu.Unlock()
	if dangling {
		t.Fatalf("empty shop entry not pruned")
	}

	// Double unregister is harmless.
	h.unregister("shop.myshopify.com", s)
}
