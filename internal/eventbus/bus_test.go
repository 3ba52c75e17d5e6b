package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ridgeline-labs/netspan/pkg/plugin"
	"go.uber.org/zap"
)

func TestPublishSyncCallsHandler(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got plugin.Event
	bus.Subscribe("scan.log", func(_ context.Context, e plugin.Event) {
		got = e
	})

	// Publish is synchronous and does not go through the subscriber's
	// queue, so the handler fires in-line.
	_ = bus.Publish(context.Background(), plugin.Event{Topic: "scan.log", Payload: "hello"})

	if got.Payload != "hello" {
		t.Fatalf("handler did not observe published event, got %+v", got)
	}
}

func TestPublishAsyncDeliversToSubscriber(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	received := make([]string, 0)
	done := make(chan struct{})

	bus.Subscribe("scan.log", func(_ context.Context, e plugin.Event) {
		mu.Lock()
		received = append(received, e.Payload.(string))
		if len(received) == 3 {
			close(done)
		}
		mu.Unlock()
	})

	for _, msg := range []string{"one", "two", "three"} {
		bus.PublishAsync(context.Background(), plugin.Event{Topic: "scan.log", Payload: msg})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("expected 3 events, got %d", len(received))
	}
	for i, want := range []string{"one", "two", "three"} {
		if received[i] != want {
			t.Fatalf("event %d out of order: got %q want %q", i, received[i], want)
		}
	}
}

func TestPublishAsyncNeverBlocksOnFullQueue(t *testing.T) {
	bus := NewBus(zap.NewNop())

	block := make(chan struct{})
	bus.Subscribe("scan.log", func(_ context.Context, _ plugin.Event) {
		<-block
	})

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBacklog*2; i++ {
			bus.PublishAsync(context.Background(), plugin.Event{Topic: "scan.log"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishAsync blocked the producer on a full subscriber queue")
	}
	close(block)
}

func TestSnapshotOverflowKeepsNewest(t *testing.T) {
	bus := NewBus(zap.NewNop())

	s := &subscription{ch: make(chan plugin.Event, 2), logger: zap.NewNop()}
	s.enqueue(plugin.Event{Topic: "topology.snapshot", Payload: 1})
	s.enqueue(plugin.Event{Topic: "topology.snapshot", Payload: 2})
	s.enqueue(plugin.Event{Topic: "topology.snapshot", Payload: 3})

	var got []int
	for len(s.ch) > 0 {
		got = append(got, (<-s.ch).Payload.(int))
	}

	if len(got) != 2 || got[len(got)-1] != 3 {
		t.Fatalf("expected newest snapshot retained, got %v", got)
	}

	_ = bus
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var count int
	var mu sync.Mutex
	unsubscribe := bus.Subscribe("scan.log", func(_ context.Context, _ plugin.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.PublishAsync(context.Background(), plugin.Event{Topic: "scan.log"})
	time.Sleep(50 * time.Millisecond)
	unsubscribe()
	bus.PublishAsync(context.Background(), plugin.Event{Topic: "scan.log"})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected exactly 1 delivery before unsubscribe, got %d", count)
	}
}
