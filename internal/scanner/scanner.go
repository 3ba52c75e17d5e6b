// Package scanner implements netspan's recursive, depth-first topology
// discovery worker: one cooperative goroutine per active scan that
// walks outward from a network's root device over SSH (or the
// MikroTik API), persisting every device and interface it learns
// along the way, per spec.md §4.5.
package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ridgeline-labs/netspan/internal/drivers"
	"github.com/ridgeline-labs/netspan/internal/mdns"
	"github.com/ridgeline-labs/netspan/internal/metrics"
	"github.com/ridgeline-labs/netspan/internal/ouilookup"
	"github.com/ridgeline-labs/netspan/internal/prober"
	"github.com/ridgeline-labs/netspan/internal/sshconn"
	"github.com/ridgeline-labs/netspan/internal/store"
	"github.com/ridgeline-labs/netspan/pkg/models"
	"github.com/ridgeline-labs/netspan/pkg/plugin"
)

// ErrAlreadyRunning is returned by Start when a scan is already active
// for the requested network, the 409-equivalent spec.md §5/§6 require.
var ErrAlreadyRunning = errors.New("scanner: a scan is already running for this network")

// ErrNetworkNotFound is returned by Start for an unknown network ID.
var ErrNetworkNotFound = errors.New("scanner: network not found")

const (
	rootCredentialID = "root-network"

	defaultSSHTimeout = 10 * time.Second
	defaultMaxDepth   = 32
)

// Orchestrator owns every active scan worker and the shared dependencies
// each one probes through. One Orchestrator instance is shared across
// all networks; per-scan state lives in scanSession.
type Orchestrator struct {
	store       *store.Store
	bus         plugin.EventBus
	ssh         *sshconn.Client
	prober      *prober.Prober
	mdnsSweeper *mdns.Sweeper
	logger      *zap.Logger

	mdnsEnabled   bool
	sshTimeout    time.Duration
	maxDepth      int
	snmpCommunity string

	mu      sync.Mutex
	running map[string]*runningScan // networkID -> state
}

// runningScan tracks one active worker's cooperative abort flag.
type runningScan struct {
	scanID string
	abort  atomic.Bool
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithSSHTimeout overrides the default 10s per-connect timeout.
func WithSSHTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sshTimeout = d
		}
	}
}

// WithMaxDepth bounds recursion depth, a defensive backstop alongside
// the visited-MAC set.
func WithMaxDepth(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithMDNS toggles the mDNS enrichment sweep.
func WithMDNS(enabled bool) Option {
	return func(o *Orchestrator) { o.mdnsEnabled = enabled }
}

// WithSNMPCommunity sets the community string threecom.go's SNMP walk
// uses, default "public".
func WithSNMPCommunity(community string) Option {
	return func(o *Orchestrator) {
		if community != "" {
			o.snmpCommunity = community
		}
	}
}

// New builds an Orchestrator from its dependencies. A nil logger is
// replaced with a no-op logger.
func New(s *store.Store, bus plugin.EventBus, sshClient *sshconn.Client, prb *prober.Prober, sweeper *mdns.Sweeper, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		store:         s,
		bus:           bus,
		ssh:           sshClient,
		prober:        prb,
		mdnsSweeper:   sweeper,
		logger:        logger,
		mdnsEnabled:   true,
		sshTimeout:    defaultSSHTimeout,
		maxDepth:      defaultMaxDepth,
		snmpCommunity: "public",
		running:       make(map[string]*runningScan),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches a new scan worker for networkID, returning the new
// scan's ID immediately; the worker continues past the caller's
// context, since an HTTP request completing must not cancel a scan
// still in flight.
func (o *Orchestrator) Start(ctx context.Context, networkID string) (string, error) {
	network, err := o.store.GetNetwork(ctx, networkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNetworkNotFound
		}
		return "", fmt.Errorf("load network %s: %w", networkID, err)
	}

	o.mu.Lock()
	if _, busy := o.running[networkID]; busy {
		o.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	rs := &runningScan{}
	o.running[networkID] = rs
	o.mu.Unlock()

	scan := &models.Scan{NetworkID: networkID}
	if err := o.store.CreateScan(ctx, scan); err != nil {
		o.mu.Lock()
		delete(o.running, networkID)
		o.mu.Unlock()
		return "", fmt.Errorf("create scan row: %w", err)
	}
	rs.scanID = scan.ID

	go o.run(network, scan, rs)

	return scan.ID, nil
}

// Stop requests cooperative abort of the running scan for networkID.
// A no-op if no scan is active.
func (o *Orchestrator) Stop(networkID string) {
	o.mu.Lock()
	rs, ok := o.running[networkID]
	o.mu.Unlock()
	if ok {
		rs.abort.Store(true)
	}
}

// scanSession carries the state one scan worker threads through its
// recursive descent: credentials to try, the MACs already visited,
// the optional jump-host tunnel, and accumulators for hostnames and
// DHCP leases learned along the way.
type scanSession struct {
	ctx   context.Context
	o     *Orchestrator
	net   *models.Network
	scan  *models.Scan
	abort *atomic.Bool

	credentials []models.Credential
	jumpHost    *sshconn.Manager

	visitedMu sync.Mutex
	visited   map[string]bool

	mdnsHints map[string]string // IP -> hostname

	leaseHintsMu sync.Mutex
	leaseHints   map[string]string // MAC -> hostname, from any device's own DHCP server
	allLeases    []models.DhcpLease

	logSeq      atomic.Int64
	deviceCount atomic.Int64
	depth       int
}

// run implements scan(network) end to end: credential/hint loading,
// the recursive walk, and terminal bookkeeping, per spec.md §4.5.
func (o *Orchestrator) run(network *models.Network, scan *models.Scan, rs *runningScan) {
	start := time.Now()
	ctx := context.Background()

	sess := &scanSession{
		ctx:        ctx,
		o:          o,
		net:        network,
		scan:       scan,
		abort:      &rs.abort,
		jumpHost:   sshconn.NewManager(),
		visited:    make(map[string]bool),
		mdnsHints:  make(map[string]string),
		leaseHints: make(map[string]string),
	}

	o.publish(ctx, TopicScanStarted, ScanStartedEvent{ScanID: scan.ID, NetworkID: network.ID, RootIP: network.RootIP})

	status, failReason := o.scanBody(sess)

	sess.jumpHost.Close()

	deviceCount := int(sess.deviceCount.Load())
	now := time.Now()
	if err := o.store.FinishScan(ctx, scan.ID, status, deviceCount, failReason); err != nil {
		o.logger.Error("finish scan", zap.String("scan_id", scan.ID), zap.Error(err))
	}
	if err := o.store.TouchNetworkScanned(ctx, network.ID, now); err != nil {
		o.logger.Error("touch network scanned", zap.String("network_id", network.ID), zap.Error(err))
	}

	metrics.ScansTotal.WithLabelValues(string(status)).Inc()
	metrics.ScanDurationSeconds.Observe(time.Since(start).Seconds())

	o.publish(ctx, TopicScanCompleted, ScanCompletedEvent{
		ScanID: scan.ID, NetworkID: network.ID, Status: status,
		DeviceCount: deviceCount, FailReason: failReason,
	})

	o.mu.Lock()
	delete(o.running, network.ID)
	o.mu.Unlock()
}

// scanBody runs steps 1-4 of scan(network) and classifies the outcome
// into a terminal Scan status, per spec.md §4.5/§7. A single device's
// failure never reaches here: scanDevice absorbs those itself.
func (o *Orchestrator) scanBody(sess *scanSession) (models.ScanStatus, string) {
	creds, err := o.loadCredentials(sess.ctx, sess.net)
	if err != nil {
		o.logLine(sess, models.LogError, fmt.Sprintf("loading credentials: %v", err))
		return models.ScanStatusFailed, "no credentials available"
	}
	if len(creds) == 0 {
		o.logLine(sess, models.LogError, "no credentials configured for network")
		return models.ScanStatusFailed, "credential list empty"
	}
	sess.credentials = creds

	if o.mdnsEnabled && o.mdnsSweeper != nil {
		hints, err := o.mdnsSweeper.Sweep(sess.ctx)
		if err != nil {
			o.logLine(sess, models.LogWarn, fmt.Sprintf("mdns sweep failed: %v", err))
		} else {
			sess.mdnsHints = hints
		}
	}

	if err := o.clearNetworkScanState(sess.ctx, sess.net.ID); err != nil {
		o.logLine(sess, models.LogError, fmt.Sprintf("clearing prior scan state: %v", err))
		return models.ScanStatusFailed, err.Error()
	}

	if sess.abort.Load() {
		o.logLine(sess, models.LogWarn, "scan aborted before root probe")
		return models.ScanStatusFailed, "cancelled"
	}

	o.scanDevice(sess, sess.net.RootIP, "", nil, "", models.DiscoveryManual, true)

	if err := o.store.ReplaceDhcpLeases(sess.ctx, sess.net.ID, sess.allLeasesSnapshot()); err != nil {
		o.logLine(sess, models.LogError, fmt.Sprintf("persisting dhcp leases: %v", err))
	}

	if sess.abort.Load() {
		o.logLine(sess, models.LogWarn, "scan aborted")
		return models.ScanStatusFailed, "cancelled"
	}
	return models.ScanStatusCompleted, ""
}

func (s *scanSession) allLeasesSnapshot() []models.DhcpLease {
	s.leaseHintsMu.Lock()
	defer s.leaseHintsMu.Unlock()
	return append([]models.DhcpLease(nil), s.allLeases...)
}

// loadCredentials builds the scan's try-in-order credential list: the
// network's own bootstrap root credential first, then whatever
// root-network-scoped and global rows the store returns, per spec.md
// §4.5 step 1.
func (o *Orchestrator) loadCredentials(ctx context.Context, network *models.Network) ([]models.Credential, error) {
	var creds []models.Credential
	if network.RootUsername != "" {
		creds = append(creds, models.Credential{ID: rootCredentialID, Username: network.RootUsername, Password: network.RootPassword, NetworkID: &network.ID})
	}
	rest, err := o.store.CredentialsForNetwork(ctx, network.ID)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	creds = append(creds, rest...)
	return creds, nil
}

// clearNetworkScanState implements spec.md §4.5 step 3: interfaces and
// DHCP leases are transient per-scan state and are cleared up front,
// while device rows persist across scans.
func (o *Orchestrator) clearNetworkScanState(ctx context.Context, networkID string) error {
	devices, err := o.store.ListDevicesByNetwork(ctx, networkID)
	if err != nil {
		return fmt.Errorf("list devices for clear: %w", err)
	}
	for _, d := range devices {
		if err := o.store.ReplaceInterfaces(ctx, d.PrimaryMAC, nil); err != nil {
			return fmt.Errorf("clear interfaces for %s: %w", d.PrimaryMAC, err)
		}
	}
	return o.store.ReplaceDhcpLeases(ctx, networkID, nil)
}

// scanDevice implements scan_device(ip, parent_iface, parent_upstream,
// known_mac?) from spec.md §4.5 step 4. It never returns an error: a
// single device's failure is logged and absorbed so the surrounding
// recursion continues, per the §7 error-handling principle.
func (o *Orchestrator) scanDevice(sess *scanSession, ip, knownMAC string, parentInterfaceID *int64, parentNeighborIface string, discoveryMethod models.DiscoveryMethod, isRoot bool) {
	if sess.abort.Load() {
		return
	}
	if sess.depth >= o.maxDepth {
		o.logLine(sess, models.LogWarn, fmt.Sprintf("max recursion depth reached at %s", ip))
		return
	}
	if knownMAC != "" && sess.markVisited(knownMAC) {
		return
	}

	probeStart := time.Now()
	result := o.prober.Scan(sess.ctx, ip, prober.ManagementPorts)
	metrics.PortProbeDurationSeconds.Observe(time.Since(probeStart).Seconds())

	if sess.abort.Load() {
		return
	}

	if len(result.OpenPorts) == 0 {
		mac := knownMAC
		if mac == "" {
			mac = models.UnknownDeviceID(ip)
			if sess.markVisited(mac) {
				return
			}
		}
		o.persistUnreachable(sess, mac, ip, nil, parentInterfaceID, parentNeighborIface, discoveryMethod)
		return
	}

	mac := knownMAC
	existing, getErr := o.lookupExisting(sess.ctx, mac)
	if getErr == nil && existing != nil && existing.SkipLogin {
		o.logLine(sess, models.LogInfo, fmt.Sprintf("%s marked skip_login, recording ports only", ip))
		o.persistUnreachable(sess, mac, ip, result.OpenPorts, parentInterfaceID, parentNeighborIface, discoveryMethod)
		return
	}

	viaJumpHost, ok := o.decideConnectionPath(sess, isRoot, result.OpenPorts)
	if !ok {
		o.logLine(sess, models.LogWarn, fmt.Sprintf("%s has open ports but no viable connection path", ip))
		o.persistUnreachable(sess, firstNonEmptyStr(mac, models.UnknownDeviceID(ip)), ip, result.OpenPorts, parentInterfaceID, parentNeighborIface, discoveryMethod)
		return
	}

	session, cred, err := o.authenticate(sess, ip, mac, viaJumpHost)
	if err != nil {
		o.logLine(sess, models.LogWarn, fmt.Sprintf("%s: all credentials exhausted: %v", ip, err))
		o.persistUnreachable(sess, firstNonEmptyStr(mac, models.UnknownDeviceID(ip)), ip, result.OpenPorts, parentInterfaceID, parentNeighborIface, discoveryMethod)
		return
	}
	defer session.Close()

	if !isRoot && cred.ID != rootCredentialID {
		effMAC := firstNonEmptyStr(mac, models.UnknownDeviceID(ip))
		if err := o.store.RecordMatchedCredential(sess.ctx, effMAC, cred.ID); err != nil {
			o.logger.Warn("record matched credential", zap.String("mac", effMAC), zap.Error(err))
		}
	}

	if isRoot && !sess.jumpHost.Present() {
		if err := sess.jumpHost.Establish(sess.ctx, o.ssh, ip, cred.Username, cred.Password); err != nil {
			o.logLine(sess, models.LogWarn, fmt.Sprintf("jump host establish failed: %v", err))
		} else {
			sess.jumpHost.ProbeDirectTCPIP(sess.ctx)
		}
	}

	driverName, confidence, source := drivers.Classify(mac, session.ServerBanner)
	if driverName == "" {
		o.logLine(sess, models.LogWarn, fmt.Sprintf("%s: could not classify vendor, recording bare access", ip))
		d := o.baseDevice(sess, firstNonEmptyStr(mac, models.UnknownDeviceID(ip)), ip, parentInterfaceID, parentNeighborIface, discoveryMethod)
		d.Accessible = true
		d.OpenPorts = joinPorts(result.OpenPorts)
		o.upsertAndRecord(sess, d, nil)
		return
	}

	driver := drivers.Registry[driverName]
	connMode := "exec"
	if driver.ShellOnly() {
		connMode = "shell"
	}
	o.logLine(sess, models.LogInfo, fmt.Sprintf("%s: probing via %s driver (%s mode)", ip, driverName, connMode))

	target := drivers.Target{
		IP: ip, SSH: session, Username: cred.Username, Password: cred.Password,
		JumpHost: sess.jumpHost, SNMPCommunity: o.snmpCommunity,
	}
	info, err := driver.Probe(sess.ctx, target)
	if err != nil {
		o.logLine(sess, models.LogError, fmt.Sprintf("%s: driver %s probe failed: %v", ip, driverName, err))
		d := o.baseDevice(sess, firstNonEmptyStr(mac, models.UnknownDeviceID(ip)), ip, parentInterfaceID, parentNeighborIface, discoveryMethod)
		d.Accessible = true
		d.Driver = driverName
		d.OpenPorts = joinPorts(result.OpenPorts)
		o.upsertAndRecord(sess, d, nil)
		return
	}

	effMAC := mac
	if effMAC == "" {
		effMAC = info.MAC
	}
	if effMAC == "" {
		effMAC = models.UnknownDeviceID(ip)
	}
	if knownMAC == "" && sess.markVisited(effMAC) {
		return
	}

	sess.rememberLeaseHints(info.DhcpLeases)

	upstream := resolveUpstreamInterface(info.OwnUpstreamInterface, ip, info.Interfaces, parentNeighborIface)
	deviceType := classifyDeviceType(info.Hostname, info.Model, info.Interfaces)

	d := o.baseDevice(sess, effMAC, ip, parentInterfaceID, upstream, discoveryMethod)
	d.Hostname = firstNonEmptyStr(info.Hostname, d.Hostname)
	d.Vendor = firstNonEmptyStr(ouilookup.Lookup(effMAC), classificationVendorHint(source, driverName))
	d.Model = info.Model
	d.Serial = info.Serial
	d.FirmwareVersion = info.Version
	d.DeviceType = deviceType
	d.Accessible = true
	d.OpenPorts = joinPorts(result.OpenPorts)
	d.Driver = driverName

	o.logger.Debug("classified device",
		zap.String("ip", ip), zap.String("driver", driverName),
		zap.Float64("confidence", confidence), zap.String("source", source),
	)

	nameToID := o.upsertAndRecord(sess, d, info.Interfaces)

	for _, n := range info.Neighbors {
		if sess.abort.Load() {
			return
		}
		if upstream != "" && n.Interface == upstream {
			continue // this is the parent-ward direction; never re-descend into it
		}

		var childParentIface *int64
		if id, ok := nameToID[n.Interface]; ok {
			idCopy := id
			childParentIface = &idCopy
		}

		childMethod := mapDiscoveryMethod(n.Type)

		if n.IP != "" {
			sess.depth++
			o.scanDevice(sess, n.IP, n.MAC, childParentIface, n.Interface, childMethod, false)
			sess.depth--
			continue
		}

		if n.Type == "bridge-host" && n.MAC != "" {
			if sess.markVisited(n.MAC) {
				continue
			}
			leaf := o.baseDevice(sess, n.MAC, "", childParentIface, n.Interface, childMethod)
			leaf.Accessible = false
			o.upsertAndRecord(sess, leaf, nil)
		}
	}
}

// markVisited records mac as seen and reports whether it had already
// been visited (in which case the caller must skip it).
func (s *scanSession) markVisited(mac string) bool {
	s.visitedMu.Lock()
	defer s.visitedMu.Unlock()
	if s.visited[mac] {
		return true
	}
	s.visited[mac] = true
	return false
}

func (s *scanSession) rememberLeaseHints(leases []models.DhcpLease) {
	if len(leases) == 0 {
		return
	}
	s.leaseHintsMu.Lock()
	defer s.leaseHintsMu.Unlock()
	for _, l := range leases {
		s.allLeases = append(s.allLeases, l)
		if l.MAC != "" && l.Hostname != "" {
			s.leaseHints[strings.ToUpper(l.MAC)] = l.Hostname
		}
	}
}

func (s *scanSession) hostnameHint(mac, ip string) string {
	s.leaseHintsMu.Lock()
	h := s.leaseHints[strings.ToUpper(mac)]
	s.leaseHintsMu.Unlock()
	if h != "" {
		return h
	}
	return s.mdnsHints[ip]
}

// baseDevice builds the common Device fields every persistence path
// shares; callers fill in anything probe-specific before upserting.
func (o *Orchestrator) baseDevice(sess *scanSession, mac, ip string, parentInterfaceID *int64, upstreamIface string, discoveryMethod models.DiscoveryMethod) *models.Device {
	return &models.Device{
		PrimaryMAC:            mac,
		NetworkID:             sess.net.ID,
		Hostname:              sess.hostnameHint(mac, ip),
		IP:                    ip,
		Vendor:                ouilookup.Lookup(mac),
		DeviceType:            models.DeviceTypeEndDevice,
		Accessible:            false,
		OpenPorts:             "[]",
		DiscoveryMethod:       discoveryMethod,
		ParentInterfaceID:     parentInterfaceID,
		UpstreamInterfaceName: upstreamIface,
	}
}

// persistUnreachable records a device that was reached on the network
// but never authenticated or never answered a single port, per the
// "transient I/O" and "authentication exhausted" branches of spec.md §7.
func (o *Orchestrator) persistUnreachable(sess *scanSession, mac, ip string, openPorts []int, parentInterfaceID *int64, upstreamIface string, discoveryMethod models.DiscoveryMethod) {
	d := o.baseDevice(sess, mac, ip, parentInterfaceID, upstreamIface, discoveryMethod)
	d.OpenPorts = joinPorts(openPorts)
	o.upsertAndRecord(sess, d, nil)
}

// upsertAndRecord writes a device and its interfaces, logs and
// publishes the discovery/update event, and returns the device's fresh
// interface name->ID map for the caller's children to link against.
func (o *Orchestrator) upsertAndRecord(sess *scanSession, d *models.Device, ifaces []models.Interface) map[string]int64 {
	created, err := o.store.UpsertDevice(sess.ctx, d)
	if err != nil {
		o.logLine(sess, models.LogError, fmt.Sprintf("persisting device %s: %v", d.PrimaryMAC, err))
		return nil
	}
	if err := o.store.ReplaceInterfaces(sess.ctx, d.PrimaryMAC, ifaces); err != nil {
		o.logLine(sess, models.LogError, fmt.Sprintf("persisting interfaces for %s: %v", d.PrimaryMAC, err))
	}

	nameToID := make(map[string]int64)
	if rows, err := o.store.InterfacesForDevice(sess.ctx, d.PrimaryMAC); err == nil {
		for _, r := range rows {
			nameToID[r.Name] = r.ID
		}
	}

	sess.deviceCount.Add(1)
	metrics.DevicesDiscoveredTotal.Inc()

	topic := TopicDeviceUpdated
	level := models.LogInfo
	verb := "updated"
	if created {
		topic = TopicDeviceFound
		level = models.LogSuccess
		verb = "discovered"
	}
	o.logLine(sess, level, fmt.Sprintf("%s %s (%s, %s)", verb, d.PrimaryMAC, d.IP, d.DeviceType))
	o.publish(sess.ctx, topic, DeviceEvent{ScanID: sess.scan.ID, Device: *d})

	return nameToID
}

func (o *Orchestrator) lookupExisting(ctx context.Context, mac string) (*models.Device, error) {
	if mac == "" {
		return nil, sql.ErrNoRows
	}
	return o.store.GetDevice(ctx, mac)
}

// decideConnectionPath implements spec.md §4.5's connection-path
// decision: root connects directly; a confirmed-supported jump host
// forces every other device through the tunnel; otherwise direct port
// 22 wins, falling back to a tunnel attempt if one is merely present.
func (o *Orchestrator) decideConnectionPath(sess *scanSession, isRoot bool, openPorts []int) (viaJumpHost bool, ok bool) {
	if isRoot {
		return false, true
	}
	if sess.jumpHost.Supported() {
		return true, true
	}
	if hasPort(openPorts, 22) {
		return false, true
	}
	if sess.jumpHost.Present() {
		return true, true
	}
	return false, false
}

// authenticate tries the scan's credentials in matched-first-then-rest
// order, returning the first session that logs in successfully.
func (o *Orchestrator) authenticate(sess *scanSession, ip, mac string, viaJumpHost bool) (*sshconn.Session, models.Credential, error) {
	var lastErr error
	for _, cred := range o.orderedCredentials(sess, mac) {
		if sess.abort.Load() {
			return nil, models.Credential{}, fmt.Errorf("aborted")
		}
		var session *sshconn.Session
		var err error
		if viaJumpHost {
			session, err = sess.jumpHost.DialSSH(sess.ctx, ip, cred.Username, cred.Password, 22, o.sshTimeout)
		} else {
			session, err = o.ssh.Connect(sess.ctx, ip, cred.Username, cred.Password, 0, o.sshTimeout)
		}
		if err == nil {
			metrics.SSHConnectAttemptsTotal.WithLabelValues("success").Inc()
			return session, cred, nil
		}
		metrics.SSHConnectAttemptsTotal.WithLabelValues("failure").Inc()
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no credentials configured")
	}
	return nil, models.Credential{}, lastErr
}

// orderedCredentials applies spec.md §4.5's "matched-first-if-known,
// then the rest" try order, per testable property 9.
func (o *Orchestrator) orderedCredentials(sess *scanSession, mac string) []models.Credential {
	if mac == "" {
		return sess.credentials
	}
	matchedID, ok, err := o.store.MatchedCredentialFor(sess.ctx, mac)
	if err != nil || !ok {
		return sess.credentials
	}
	var matched *models.Credential
	rest := make([]models.Credential, 0, len(sess.credentials))
	for i := range sess.credentials {
		if sess.credentials[i].ID == matchedID {
			c := sess.credentials[i]
			matched = &c
			continue
		}
		rest = append(rest, sess.credentials[i])
	}
	if matched == nil {
		return sess.credentials
	}
	return append([]models.Credential{*matched}, rest...)
}

func (o *Orchestrator) publish(ctx context.Context, topic string, payload any) {
	if o.bus == nil {
		return
	}
	o.bus.PublishAsync(ctx, plugin.Event{Topic: topic, Source: "scanner", Timestamp: time.Now(), Payload: payload})
}

func (o *Orchestrator) logLine(sess *scanSession, level models.LogLevel, message string) {
	seq := sess.logSeq.Add(1)
	log := models.ScanLog{ScanID: sess.scan.ID, Seq: seq, Timestamp: time.Now(), Level: level, Message: message}
	if err := o.store.AppendScanLog(sess.ctx, log); err != nil {
		o.logger.Warn("append scan log", zap.Error(err))
	}
	switch level {
	case models.LogError:
		o.logger.Error(message, zap.String("scan_id", sess.scan.ID))
	case models.LogWarn:
		o.logger.Warn(message, zap.String("scan_id", sess.scan.ID))
	default:
		o.logger.Info(message, zap.String("scan_id", sess.scan.ID))
	}
	o.publish(sess.ctx, TopicScanLog, LogEvent{ScanID: sess.scan.ID, Level: level, Seq: seq, Message: message})
}

func hasPort(ports []int, want int) bool {
	for _, p := range ports {
		if p == want {
			return true
		}
	}
	return false
}

func firstNonEmptyStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinPorts(ports []int) string {
	if len(ports) == 0 {
		return "[]"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// classificationVendorHint falls back to the driver family name when
// OUI/banner classification succeeded but the OUI table itself didn't
// carry a human-readable vendor string.
func classificationVendorHint(source, driverName string) string {
	if source == "" {
		return ""
	}
	switch driverName {
	case "mikrotik-cli", "mikrotik-api":
		return "MikroTik"
	case "zyxel":
		return "Zyxel"
	case "threecom":
		return "3Com"
	case "ruckus":
		return "Ruckus"
	default:
		return ""
	}
}

// resolveUpstreamInterface implements spec.md §4.5's priority chain:
// the driver's own report, then the interface whose address matches
// the IP the scanner connected through, then the parent's neighbor
// interface name.
func resolveUpstreamInterface(driverReported, connectedIP string, ifaces []models.Interface, parentNeighborIface string) string {
	if driverReported != "" {
		return driverReported
	}
	for _, iface := range ifaces {
		if ipWithoutMask(iface.IP) == connectedIP {
			return iface.Name
		}
	}
	return parentNeighborIface
}

func ipWithoutMask(ip string) string {
	if i := strings.IndexByte(ip, '/'); i >= 0 {
		return ip[:i]
	}
	return ip
}

// classifyDeviceType implements spec.md §4.5's classification rules:
// explicit hostname/model hints first, then interface-shape heuristics,
// then a vendor+model special case for Zyxel's GS switch line.
func classifyDeviceType(hostname, model string, ifaces []models.Interface) models.DeviceType {
	hay := strings.ToLower(hostname + " " + model)
	switch {
	case strings.Contains(hay, "router"):
		return models.DeviceTypeRouter
	case strings.Contains(hay, "switch"):
		return models.DeviceTypeSwitch
	case strings.Contains(hay, "access point") || strings.Contains(hay, " ap") || strings.HasPrefix(hay, "ap"):
		return models.DeviceTypeAccessPoint
	}

	for _, iface := range ifaces {
		if strings.HasPrefix(strings.ToLower(iface.Name), "wlan") {
			return models.DeviceTypeAccessPoint
		}
	}

	etherCount := 0
	for _, iface := range ifaces {
		if strings.HasPrefix(strings.ToLower(iface.Name), "ether") {
			etherCount++
		}
	}
	if etherCount > 2 {
		return models.DeviceTypeSwitch
	}

	if strings.HasPrefix(strings.ToUpper(model), "GS") {
		return models.DeviceTypeSwitch
	}

	return models.DeviceTypeEndDevice
}

// mapDiscoveryMethod translates a driver-reported neighbor table kind
// into the persisted DiscoveryMethod enum.
func mapDiscoveryMethod(neighborType string) models.DiscoveryMethod {
	switch neighborType {
	case "dhcp":
		return models.DiscoveryDHCP
	case "arp":
		return models.DiscoveryARP
	case "bridge-host":
		return models.DiscoveryBridgeHost
	case "mndp":
		return models.DiscoveryMNDP
	case "lldp":
		return models.DiscoveryLLDP
	case "cdp":
		return models.DiscoveryCDP
	default:
		return models.DiscoveryManual
	}
}
