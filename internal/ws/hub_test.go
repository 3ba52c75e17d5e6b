package ws

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestClient(networkID string) *Client {
	return &Client{
		conn:      nil, // Not needed for hub tests
		networkID: networkID,
		send:      make(chan Message, 256),
		logger:    testLogger(),
	}
}

// TestNewHub verifies that NewHub creates a hub with no clients.
func TestNewHub(t *testing.T) {
	hub := NewHub(testLogger())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.clients == nil {
		t.Error("hub.clients map is nil")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// TestRegister verifies that Register adds a client and increments ClientCount.
func TestRegister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("net-1")

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.mu.RLock()
	_, exists := hub.clients[client]
	hub.mu.RUnlock()

	if !exists {
		t.Error("client not found in hub.clients map")
	}
}

// TestRegisterMultipleClients verifies that multiple clients can be registered.
func TestRegisterMultipleClients(t *testing.T) {
	hub := NewHub(testLogger())

	tests := []struct {
		name      string
		networkID string
	}{
		{name: "first client", networkID: "net-1"},
		{name: "second client", networkID: "net-2"},
		{name: "third client", networkID: "net-3"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(tt.networkID)
			hub.Register(client)

			wantCount := i + 1
			if hub.ClientCount() != wantCount {
				t.Errorf("ClientCount() = %d, want %d", hub.ClientCount(), wantCount)
			}
		})
	}
}

// TestUnregister verifies that Unregister removes a client and closes its send channel.
func TestUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("net-1")

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	hub.mu.RLock()
	_, exists := hub.clients[client]
	hub.mu.RUnlock()

	if exists {
		t.Error("client still exists in hub.clients map after unregister")
	}

	// Verify channel is closed by attempting to receive.
	_, ok := <-client.send
	if ok {
		t.Error("client.send channel is not closed")
	}
}

// TestUnregisterNotRegistered verifies that Unregister on a client not in the hub does nothing.
func TestUnregisterNotRegistered(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("net-1")

	// Unregister without registering first should not panic.
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Unregister() panicked: %v", r)
		}
	}()

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	// Channel should not be closed if client was never registered.
	select {
	case _, ok := <-client.send:
		if !ok {
			t.Error("channel closed for unregistered client")
		}
	default:
		// Channel is empty and not closed, as expected.
	}
}

// TestBroadcast verifies that Broadcast delivers a message to all clients
// subscribed to that network.
func TestBroadcast(t *testing.T) {
	hub := NewHub(testLogger())

	client1 := newTestClient("net-1")
	client2 := newTestClient("net-1")
	client3 := newTestClient("net-1")

	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	msg := Message{
		Type: MessageStatus,
		Data: StatusData{Status: "running"},
	}

	hub.Broadcast("net-1", msg)

	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case received := <-client.send:
			if received.Type != MessageStatus {
				t.Errorf("client %d received Type = %v, want %v", i+1, received.Type, MessageStatus)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %d did not receive message", i+1)
		}
	}
}

// TestBroadcastScopedToNetwork verifies that clients subscribed to a
// different network do not receive the broadcast.
func TestBroadcastScopedToNetwork(t *testing.T) {
	hub := NewHub(testLogger())

	inScope := newTestClient("net-1")
	outOfScope := newTestClient("net-2")

	hub.Register(inScope)
	hub.Register(outOfScope)

	hub.Broadcast("net-1", Message{Type: MessageStatus, Data: StatusData{Status: "running"}})

	select {
	case <-inScope.send:
	case <-time.After(100 * time.Millisecond):
		t.Error("in-scope client did not receive message")
	}

	select {
	case msg := <-outOfScope.send:
		t.Errorf("out-of-scope client unexpectedly received message: %+v", msg)
	case <-time.After(50 * time.Millisecond):
		// Expected: nothing delivered.
	}
}

// TestBroadcastEmptyHub verifies that Broadcast to empty hub does nothing.
func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(testLogger())

	msg := Message{Type: MessageTopology, Data: nil}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Broadcast() to empty hub panicked: %v", r)
		}
	}()

	hub.Broadcast("net-1", msg)
}

// TestBroadcastDropsMessagesWhenBufferFull verifies that Broadcast drops messages when client send buffer is full.
func TestBroadcastDropsMessagesWhenBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("net-1")

	hub.Register(client)

	for i := 0; i < 256; i++ {
		client.send <- Message{Type: MessageLog}
	}

	if len(client.send) != 256 {
		t.Fatalf("client.send buffer length = %d, want 256", len(client.send))
	}

	msg := Message{Type: MessageStatus, Data: StatusData{Status: "dropped"}}
	hub.Broadcast("net-1", msg)

	if len(client.send) != 256 {
		t.Errorf("client.send buffer length = %d, want 256 (message should have been dropped)", len(client.send))
	}

	received := <-client.send
	if received.Type == MessageStatus {
		t.Error("dropped message was unexpectedly received")
	}
}

// TestConcurrentRegisterUnregisterBroadcast verifies that concurrent operations are safe.
func TestConcurrentRegisterUnregisterBroadcast(t *testing.T) {
	hub := NewHub(testLogger())

	var wg sync.WaitGroup
	numClients := 50
	numBroadcasts := 100

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			client := newTestClient("net-1")
			hub.Register(client)

			go func() {
				for range client.send {
					// Discard messages.
				}
			}()

			time.Sleep(10 * time.Millisecond)
			hub.Unregister(client)
		}(i)
	}

	for i := 0; i < numBroadcasts; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			hub.Broadcast("net-1", Message{Type: MessageLog})
		}(i)
	}

	wg.Wait()

	finalCount := hub.ClientCount()
	if finalCount < 0 {
		t.Errorf("ClientCount() = %d, should not be negative", finalCount)
	}
}

// TestConcurrentClientCount verifies that ClientCount is safe to call concurrently.
func TestConcurrentClientCount(t *testing.T) {
	hub := NewHub(testLogger())

	var wg sync.WaitGroup
	var countSum int64

	for i := 0; i < 10; i++ {
		hub.Register(newTestClient("net-1"))
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count := hub.ClientCount()
			atomic.AddInt64(&countSum, int64(count))
		}()
	}

	wg.Wait()

	expectedSum := int64(10 * 100)
	if countSum != expectedSum {
		t.Errorf("sum of all ClientCount() calls = %d, want %d", countSum, expectedSum)
	}
}

// TestBroadcastMessageTypes verifies that each message type can be broadcast.
func TestBroadcastMessageTypes(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("net-1")
	hub.Register(client)

	tests := []struct {
		name string
		msg  Message
	}{
		{name: "log", msg: Message{Type: MessageLog, Data: "probing 10.0.0.1:22"}},
		{name: "topology", msg: Message{Type: MessageTopology, Data: []string{}}},
		{name: "status", msg: Message{Type: MessageStatus, Data: StatusData{Status: "completed", DeviceCount: 8}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub.Broadcast("net-1", tt.msg)

			select {
			case received := <-client.send:
				if received.Type != tt.msg.Type {
					t.Errorf("received Type = %v, want %v", received.Type, tt.msg.Type)
				}
			case <-time.After(100 * time.Millisecond):
				t.Error("client did not receive message")
			}
		})
	}
}

// TestClientChannelCapacity verifies that client send channel has correct buffer size.
func TestClientChannelCapacity(t *testing.T) {
	client := newTestClient("net-1")

	if cap(client.send) != 256 {
		t.Errorf("client.send channel capacity = %d, want 256", cap(client.send))
	}
}

// TestUnregisterTwice verifies that unregistering the same client twice is safe.
func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("net-1")

	hub.Register(client)
	hub.Unregister(client)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Unregister() panicked: %v", r)
		}
	}()

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}
