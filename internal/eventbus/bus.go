// Package eventbus provides the in-memory implementation of plugin.EventBus
// used to fan scan progress out to HTTP poll and WebSocket subscribers.
package eventbus

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ridgeline-labs/netspan/internal/metrics"
	"github.com/ridgeline-labs/netspan/pkg/plugin"
	"go.uber.org/zap"
)

var _ plugin.EventBus = (*Bus)(nil)

// defaultBacklog bounds the number of queued events held per subscriber
// before the overflow policy kicks in. Sized generously for scan log
// lines and topology snapshots, not as a hard byte budget.
const defaultBacklog = 256

// Bus is an in-memory event bus implementing plugin.EventBus.
//
// Publish calls handlers synchronously in the caller's goroutine, same
// as before. PublishAsync instead enqueues the event onto a bounded,
// per-subscriber channel consumed by a dedicated goroutine, so a slow
// or stuck handler can never block the producing scan worker. When a
// subscriber's queue is full, the overflow policy depends on the topic:
// topics ending in ".snapshot" keep the newest event (drop-oldest),
// everything else drops the incoming event (drop-newest) so log
// ordering up to the drop point is preserved.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*subscription
	allSubs  []*subscription
	nextID   uint64
	logger   *zap.Logger
}

type subscription struct {
	id      uint64
	topic   string
	ch      chan plugin.Event
	handler plugin.EventHandler
	dropped atomic.Uint64
	logger  *zap.Logger
}

// NewBus creates a new in-memory event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]*subscription),
		logger:   logger,
	}
}

// Publish dispatches an event synchronously to all matching handlers.
func (b *Bus) Publish(ctx context.Context, event plugin.Event) error {
	for _, h := range b.matchingHandlers(event.Topic) {
		b.safeCall(ctx, h, event)
	}
	return nil
}

// PublishAsync enqueues the event onto each matching subscriber's bounded
// queue without blocking, applying the per-topic overflow policy on a
// full queue.
func (b *Bus) PublishAsync(_ context.Context, event plugin.Event) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.handlers[event.Topic])+len(b.allSubs))
	subs = append(subs, b.handlers[event.Topic]...)
	subs = append(subs, b.allSubs...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.enqueue(event)
	}
}

// enqueue places event on the subscriber's channel, applying the
// topic-appropriate overflow policy if the channel is full.
func (s *subscription) enqueue(event plugin.Event) {
	select {
	case s.ch <- event:
		return
	default:
	}

	if strings.HasSuffix(event.Topic, ".snapshot") {
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- event:
			return
		default:
		}
	}

	s.dropped.Add(1)
	metrics.EventBusDroppedTotal.WithLabelValues(event.Topic).Inc()
	if s.logger != nil {
		s.logger.Warn("event bus dropped event for slow subscriber",
			zap.String("topic", event.Topic),
			zap.Uint64("total_dropped", s.dropped.Load()),
		)
	}
}

// Subscribe registers a handler for a specific topic, backed by a
// dedicated consumer goroutine. Returns an unsubscribe function.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) (unsubscribe func()) {
	s := b.newSubscription(topic, handler)

	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], s)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[topic]
		for i, e := range entries {
			if e.id == s.id {
				b.handlers[topic] = append(entries[:i], entries[i+1:]...)
				close(e.ch)
				return
			}
		}
	}
}

// SubscribeAll registers a handler for all topics. Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler plugin.EventHandler) (unsubscribe func()) {
	s := b.newSubscription("", handler)

	b.mu.Lock()
	b.allSubs = append(b.allSubs, s)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.allSubs {
			if e.id == s.id {
				b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
				close(e.ch)
				return
			}
		}
	}
}

func (b *Bus) newSubscription(topic string, handler plugin.EventHandler) *subscription {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.mu.Unlock()

	s := &subscription{
		id:      id,
		topic:   topic,
		ch:      make(chan plugin.Event, defaultBacklog),
		handler: handler,
		logger:  b.logger,
	}

	go func() {
		for event := range s.ch {
			b.safeCall(context.Background(), handler, event)
		}
	}()

	return s
}

func (b *Bus) matchingHandlers(topic string) []plugin.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]plugin.EventHandler, 0, len(b.handlers[topic])+len(b.allSubs))
	for _, s := range b.handlers[topic] {
		out = append(out, s.handler)
	}
	for _, s := range b.allSubs {
		out = append(out, s.handler)
	}
	return out
}

func (b *Bus) safeCall(ctx context.Context, handler plugin.EventHandler, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.String("source", event.Source),
				zap.Any("panic", r),
			)
		}
	}()
	handler(ctx, event)
}
