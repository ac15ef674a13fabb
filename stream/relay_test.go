package stream

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

func TestRelayDeliversPublishedEvents(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	hub := NewHub()
	sub := hub.Subscribe("o1")
	defer sub.Close()
	relay := NewRelay(rc, "events", hub, log.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()
	// wait for subscription to start
	time.Sleep(50 * time.Millisecond)

	ev := domain.ChangeEvent{
		ID:             "e1",
		EntityType:     domain.EntityTask,
		Operation:      domain.OpDeleted,
		OrganizationID: "o1",
		EntityID:       "t1",
		Time:           9,
	}
	if err := relay.Broadcast(context.Background(), ev); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case got := <-sub.Events():
		if got.ID != "e1" || got.EntityID != "t1" || got.Name() != "task:deleted" {
			t.Fatalf("unexpected event %+v", got)
		}
		if got.OrganizationID != "o1" {
			t.Fatal("event lost its organization scope on the wire")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not exit")
	}
}

func TestRelaySkipsMalformedPayloads(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	hub := NewHub()
	sub := hub.Subscribe("o1")
	defer sub.Close()
	relay := NewRelay(rc, "events", hub, log.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	if err := rc.Publish(context.Background(), "events", "{not json").Err(); err != nil {
		t.Fatalf("publish garbage: %v", err)
	}
	if err := relay.Broadcast(context.Background(), domain.ChangeEvent{ID: "e2", OrganizationID: "o1"}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case got := <-sub.Events():
		if got.ID != "e2" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("relay stopped after malformed payload")
	}
}
