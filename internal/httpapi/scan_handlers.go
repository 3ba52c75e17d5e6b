package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ridgeline-labs/netspan/internal/scanner"
	"github.com/ridgeline-labs/netspan/internal/store"
	"github.com/ridgeline-labs/netspan/internal/topology"
	"github.com/ridgeline-labs/netspan/pkg/models"
)

// ScanHandlers serves spec.md §6's scan lifecycle and read routes.
type ScanHandlers struct {
	orchestrator *scanner.Orchestrator
	store        *store.Store
	logger       *zap.Logger
}

// NewScanHandlers builds a ScanHandlers bound to an orchestrator and store.
func NewScanHandlers(o *scanner.Orchestrator, s *store.Store, logger *zap.Logger) *ScanHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanHandlers{orchestrator: o, store: s, logger: logger}
}

// RegisterRoutes mounts the scan routes on mux.
func (h *ScanHandlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /scan/{network}/start", h.handleStart)
	mux.HandleFunc("POST /scan/{network}/stop", h.handleStop)
	mux.HandleFunc("GET /scan/{network}/status", h.handleStatus)
	mux.HandleFunc("GET /scan/{network}/logs", h.handleLogs)
	mux.HandleFunc("GET /scan/{network}/devices", h.handleDevices)
	mux.HandleFunc("GET /scan/{network}/topology", h.handleTopology)
}

// handleStart begins a scan of the named network.
//
//	@Summary		Start a scan
//	@Description	Begins a topology discovery scan for the given network. Returns 409 if one is already running.
//	@Tags			scan
//	@Produce		json
//	@Param			network	path		string	true	"Network ID"
//	@Success		202		{object}	map[string]string
//	@Failure		404		{object}	Problem
//	@Failure		409		{object}	Problem
//	@Router			/scan/{network}/start [post]
func (h *ScanHandlers) handleStart(w http.ResponseWriter, r *http.Request) {
	networkID := r.PathValue("network")

	scanID, err := h.orchestrator.Start(r.Context(), networkID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": scanID})
	case errors.Is(err, scanner.ErrAlreadyRunning):
		Conflict(w, "a scan is already running for this network", r.URL.Path)
	case errors.Is(err, scanner.ErrNetworkNotFound):
		NotFound(w, "network not found", r.URL.Path)
	default:
		h.logger.Error("start scan", zap.String("network_id", networkID), zap.Error(err))
		InternalError(w, "failed to start scan", r.URL.Path)
	}
}

// handleStop requests cancellation of the network's running scan.
//
//	@Summary		Stop a scan
//	@Description	Requests cancellation of the currently running scan for the network, if any.
//	@Tags			scan
//	@Produce		json
//	@Param			network	path		string	true	"Network ID"
//	@Success		202		{object}	map[string]string
//	@Router			/scan/{network}/stop [post]
func (h *ScanHandlers) handleStop(w http.ResponseWriter, r *http.Request) {
	networkID := r.PathValue("network")
	h.orchestrator.Stop(networkID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// scanStatusResponse is the payload spec.md §6 names literally:
// {status, logCount, deviceCount}.
type scanStatusResponse struct {
	Status      models.ScanStatus `json:"status"`
	LogCount    int               `json:"logCount"`
	DeviceCount int               `json:"deviceCount"`
}

// handleStatus returns the latest scan's status and running counts.
//
//	@Summary		Get scan status
//	@Description	Returns the status and log/device counts for the network's most recent scan.
//	@Tags			scan
//	@Produce		json
//	@Param			network	path		string	true	"Network ID"
//	@Success		200		{object}	scanStatusResponse
//	@Failure		404		{object}	Problem
//	@Router			/scan/{network}/status [get]
func (h *ScanHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	networkID := r.PathValue("network")
	ctx := r.Context()

	scan, err := h.store.LatestScanForNetwork(ctx, networkID)
	if err != nil {
		NotFound(w, "no scan found for this network", r.URL.Path)
		return
	}

	logs, err := h.store.ScanLogsAfter(ctx, scan.ID, 0)
	if err != nil {
		h.logger.Error("count scan logs", zap.Error(err))
		InternalError(w, "failed to read scan logs", r.URL.Path)
		return
	}

	devices, err := h.store.ListDevicesByNetwork(ctx, networkID)
	if err != nil {
		h.logger.Error("count devices", zap.Error(err))
		InternalError(w, "failed to read devices", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, scanStatusResponse{
		Status:      scan.Status,
		LogCount:    len(logs),
		DeviceCount: len(devices),
	})
}

// handleLogs returns scan log lines after the given offset.
//
//	@Summary		Tail scan logs
//	@Description	Returns log lines emitted by the network's latest scan after the given offset.
//	@Tags			scan
//	@Produce		json
//	@Param			network	path		string	true	"Network ID"
//	@Param			after	query		int		false	"Return logs after this sequence number"	default(0)
//	@Success		200		{array}		models.ScanLog
//	@Failure		404		{object}	Problem
//	@Router			/scan/{network}/logs [get]
func (h *ScanHandlers) handleLogs(w http.ResponseWriter, r *http.Request) {
	networkID := r.PathValue("network")
	ctx := r.Context()

	scan, err := h.store.LatestScanForNetwork(ctx, networkID)
	if err != nil {
		NotFound(w, "no scan found for this network", r.URL.Path)
		return
	}

	after := parseAfter(r)
	logs, err := h.store.ScanLogsAfter(ctx, scan.ID, after)
	if err != nil {
		h.logger.Error("read scan logs", zap.Error(err))
		InternalError(w, "failed to read scan logs", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleDevices returns the incremental discovered-device list: all
// devices for the network, in discovery order, starting after the
// given offset.
//
//	@Summary		List discovered devices
//	@Description	Returns devices discovered by the network's scan, in discovery order, after the given offset.
//	@Tags			scan
//	@Produce		json
//	@Param			network	path		string	true	"Network ID"
//	@Param			after	query		int		false	"Return devices after this index"	default(0)
//	@Success		200		{array}		models.Device
//	@Router			/scan/{network}/devices [get]
func (h *ScanHandlers) handleDevices(w http.ResponseWriter, r *http.Request) {
	networkID := r.PathValue("network")

	devices, err := h.store.ListDevicesByNetwork(r.Context(), networkID)
	if err != nil {
		h.logger.Error("list devices", zap.Error(err))
		InternalError(w, "failed to read devices", r.URL.Path)
		return
	}

	after := int(parseAfter(r))
	if after < 0 {
		after = 0
	}
	if after > len(devices) {
		after = len(devices)
	}
	writeJSON(w, http.StatusOK, devices[after:])
}

// handleTopology assembles and returns the network's device/interface
// topology tree from the scan's persisted data.
//
//	@Summary		Get network topology
//	@Description	Assembles the discovered device/interface/lease topology tree for the network.
//	@Tags			scan
//	@Produce		json
//	@Param			network	path		string	true	"Network ID"
//	@Success		200		{array}		topology.Node
//	@Router			/scan/{network}/topology [get]
func (h *ScanHandlers) handleTopology(w http.ResponseWriter, r *http.Request) {
	networkID := r.PathValue("network")
	ctx := r.Context()

	devices, err := h.store.ListDevicesByNetwork(ctx, networkID)
	if err != nil {
		h.logger.Error("list devices for topology", zap.Error(err))
		InternalError(w, "failed to read devices", r.URL.Path)
		return
	}
	ifaces, err := h.store.InterfacesForNetwork(ctx, networkID)
	if err != nil {
		h.logger.Error("list interfaces for topology", zap.Error(err))
		InternalError(w, "failed to read interfaces", r.URL.Path)
		return
	}
	leases, err := h.store.DhcpLeasesForNetwork(ctx, networkID)
	if err != nil {
		h.logger.Error("list leases for topology", zap.Error(err))
		InternalError(w, "failed to read dhcp leases", r.URL.Path)
		return
	}

	roots := topology.AssembleFromData(devices, ifaces, leases)
	writeJSON(w, http.StatusOK, roots)
}

func parseAfter(r *http.Request) int64 {
	v := r.URL.Query().Get("after")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
