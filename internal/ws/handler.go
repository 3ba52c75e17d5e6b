package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/ridgeline-labs/netspan/internal/scanner"
	"github.com/ridgeline-labs/netspan/internal/store"
	"github.com/ridgeline-labs/netspan/internal/topology"
	"github.com/ridgeline-labs/netspan/pkg/models"
	"github.com/ridgeline-labs/netspan/pkg/plugin"
)

// Handler serves the per-network event stream spec.md §6 describes:
// WS /scan/{network}/ws, carrying log, topology, and status messages.
type Handler struct {
	hub    *Hub
	store  *store.Store
	bus    plugin.EventBus
	logger *zap.Logger

	mu          sync.Mutex
	scanNetwork map[string]string // scan ID -> network ID, populated on scan start
}

// Compile-time check that Handler satisfies httpapi.RouteRegistrar.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes it to scan events.
func NewHandler(s *store.Store, bus plugin.EventBus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		hub:         NewHub(logger),
		store:       s,
		bus:         bus,
		logger:      logger,
		scanNetwork: make(map[string]string),
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes mounts the WebSocket route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /scan/{network}/ws", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	networkID := r.PathValue("network")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:      conn,
		networkID: networkID,
		send:      make(chan Message, 256),
		logger:    h.logger,
	}

	h.hub.Register(client)
	h.sendInitialSnapshot(r.Context(), networkID)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// sendInitialSnapshot broadcasts a status and topology message to every
// client of the network as soon as a new client connects, so the new
// one doesn't have to wait for the next scan event to see current state.
func (h *Handler) sendInitialSnapshot(ctx context.Context, networkID string) {
	if scan, err := h.store.LatestScanForNetwork(ctx, networkID); err == nil {
		h.broadcastStatus(ctx, networkID, scan)
	}
	h.broadcastTopology(ctx, networkID)
}

func (h *Handler) broadcastStatus(ctx context.Context, networkID string, scan *models.Scan) {
	logs, err := h.store.ScanLogsAfter(ctx, scan.ID, 0)
	if err != nil {
		return
	}
	devices, err := h.store.ListDevicesByNetwork(ctx, networkID)
	if err != nil {
		return
	}
	h.hub.Broadcast(networkID, Message{
		Type: MessageStatus,
		Data: StatusData{
			Status:      string(scan.Status),
			LogCount:    len(logs),
			DeviceCount: len(devices),
		},
	})
}

func (h *Handler) broadcastTopology(ctx context.Context, networkID string) {
	devices, err := h.store.ListDevicesByNetwork(ctx, networkID)
	if err != nil {
		return
	}
	ifaces, err := h.store.InterfacesForNetwork(ctx, networkID)
	if err != nil {
		return
	}
	leases, err := h.store.DhcpLeasesForNetwork(ctx, networkID)
	if err != nil {
		return
	}
	roots := topology.AssembleFromData(devices, ifaces, leases)
	h.hub.Broadcast(networkID, Message{Type: MessageTopology, Data: roots})
}

func (h *Handler) networkForScan(scanID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.scanNetwork[scanID]
	return id, ok
}

// subscribeToEvents wires the scan worker's event bus to this hub,
// rebuilding the topology snapshot whenever a device is added or
// updated and relaying log lines and status transitions verbatim.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe(scanner.TopicScanStarted, func(_ context.Context, event plugin.Event) {
		started, ok := event.Payload.(scanner.ScanStartedEvent)
		if !ok {
			return
		}
		h.mu.Lock()
		h.scanNetwork[started.ScanID] = started.NetworkID
		h.mu.Unlock()

		h.hub.Broadcast(started.NetworkID, Message{
			Type: MessageStatus,
			Data: StatusData{Status: string(models.ScanStatusRunning)},
		})
	})

	h.bus.Subscribe(scanner.TopicScanLog, func(_ context.Context, event plugin.Event) {
		logEvent, ok := event.Payload.(scanner.LogEvent)
		if !ok {
			return
		}
		networkID, ok := h.networkForScan(logEvent.ScanID)
		if !ok {
			return
		}
		h.hub.Broadcast(networkID, Message{Type: MessageLog, Data: logEvent})
	})

	h.bus.Subscribe(scanner.TopicDeviceFound, h.onDeviceEvent)
	h.bus.Subscribe(scanner.TopicDeviceUpdated, h.onDeviceEvent)

	h.bus.Subscribe(scanner.TopicScanCompleted, func(ctx context.Context, event plugin.Event) {
		completed, ok := event.Payload.(scanner.ScanCompletedEvent)
		if !ok {
			return
		}
		h.hub.Broadcast(completed.NetworkID, Message{
			Type: MessageStatus,
			Data: StatusData{
				Status:      string(completed.Status),
				DeviceCount: completed.DeviceCount,
			},
		})
		h.broadcastTopology(ctx, completed.NetworkID)

		h.mu.Lock()
		delete(h.scanNetwork, completed.ScanID)
		h.mu.Unlock()
	})

	h.logger.Info("subscribed to scan events for WebSocket broadcasting")
}

func (h *Handler) onDeviceEvent(ctx context.Context, event plugin.Event) {
	devEvent, ok := event.Payload.(scanner.DeviceEvent)
	if !ok {
		return
	}
	networkID, ok := h.networkForScan(devEvent.ScanID)
	if !ok {
		return
	}
	h.broadcastTopology(ctx, networkID)
}
