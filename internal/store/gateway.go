package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-labs/netspan/pkg/models"
)

// UpsertDevice inserts a new device row keyed by PrimaryMAC, or updates
// the scan-owned fields of an existing one. User-managed fields
// (comment, nomad, skip_login, user_type, asset_tag, location_id) are
// never written by this path -- only the dedicated SetUserFields touches
// them.
func (s *Store) UpsertDevice(ctx context.Context, d *models.Device) (created bool, err error) {
	now := time.Now().UTC()

	existing, getErr := s.GetDevice(ctx, d.PrimaryMAC)
	if getErr != nil && getErr != sql.ErrNoRows {
		return false, fmt.Errorf("lookup device %s: %w", d.PrimaryMAC, getErr)
	}

	if existing == nil {
		if d.FirstSeen.IsZero() {
			d.FirstSeen = now
		}
		d.LastSeen = now
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO devices (
				primary_mac, network_id, hostname, ip, vendor, model, serial,
				firmware_version, device_type, accessible, open_ports, driver,
				discovery_method, parent_interface_id, upstream_interface_name,
				first_seen, last_seen
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.PrimaryMAC, d.NetworkID, d.Hostname, d.IP, d.Vendor, d.Model, d.Serial,
			d.FirmwareVersion, string(d.DeviceType), d.Accessible, nonEmptyJSON(d.OpenPorts), d.Driver,
			string(d.DiscoveryMethod), d.ParentInterfaceID, d.UpstreamInterfaceName,
			d.FirstSeen, d.LastSeen,
		)
		if err != nil {
			return false, fmt.Errorf("insert device %s: %w", d.PrimaryMAC, err)
		}
		return true, nil
	}

	d.LastSeen = now
	_, err = s.db.ExecContext(ctx, `
		UPDATE devices SET
			network_id = ?, hostname = ?, ip = ?, vendor = ?, model = ?, serial = ?,
			firmware_version = ?, device_type = ?, accessible = ?, open_ports = ?,
			driver = ?, discovery_method = ?, parent_interface_id = ?,
			upstream_interface_name = ?, last_seen = ?
		WHERE primary_mac = ?`,
		d.NetworkID, d.Hostname, d.IP, d.Vendor, d.Model, d.Serial,
		d.FirmwareVersion, string(d.DeviceType), d.Accessible, nonEmptyJSON(d.OpenPorts),
		d.Driver, string(d.DiscoveryMethod), d.ParentInterfaceID,
		d.UpstreamInterfaceName, d.LastSeen,
		d.PrimaryMAC,
	)
	if err != nil {
		return false, fmt.Errorf("update device %s: %w", d.PrimaryMAC, err)
	}
	return false, nil
}

func nonEmptyJSON(s string) string {
	if s == "" {
		return "[]"
	}
	return s
}

// GetDevice returns a device by primary MAC, or sql.ErrNoRows if absent.
func (s *Store) GetDevice(ctx context.Context, mac string) (*models.Device, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT primary_mac, network_id, hostname, ip, vendor, model, serial,
			firmware_version, device_type, accessible, open_ports, driver,
			discovery_method, parent_interface_id, upstream_interface_name,
			first_seen, last_seen, comment, nomad, skip_login, user_type,
			asset_tag, location_id
		FROM devices WHERE primary_mac = ?`, mac)
	return scanDevice(row)
}

func scanDevice(row *sql.Row) (*models.Device, error) {
	var d models.Device
	var parentIface sql.NullInt64
	if err := row.Scan(
		&d.PrimaryMAC, &d.NetworkID, &d.Hostname, &d.IP, &d.Vendor, &d.Model, &d.Serial,
		&d.FirmwareVersion, &d.DeviceType, &d.Accessible, &d.OpenPorts, &d.Driver,
		&d.DiscoveryMethod, &parentIface, &d.UpstreamInterfaceName,
		&d.FirstSeen, &d.LastSeen, &d.Comment, &d.Nomad, &d.SkipLogin, &d.UserType,
		&d.AssetTag, &d.LocationID,
	); err != nil {
		return nil, err
	}
	if parentIface.Valid {
		d.ParentInterfaceID = &parentIface.Int64
	}
	return &d, nil
}

// ListDevicesByNetwork returns every device row belonging to a network.
func (s *Store) ListDevicesByNetwork(ctx context.Context, networkID string) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT primary_mac, network_id, hostname, ip, vendor, model, serial,
			firmware_version, device_type, accessible, open_ports, driver,
			discovery_method, parent_interface_id, upstream_interface_name,
			first_seen, last_seen, comment, nomad, skip_login, user_type,
			asset_tag, location_id
		FROM devices WHERE network_id = ? ORDER BY first_seen`, networkID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		var d models.Device
		var parentIface sql.NullInt64
		if err := rows.Scan(
			&d.PrimaryMAC, &d.NetworkID, &d.Hostname, &d.IP, &d.Vendor, &d.Model, &d.Serial,
			&d.FirmwareVersion, &d.DeviceType, &d.Accessible, &d.OpenPorts, &d.Driver,
			&d.DiscoveryMethod, &parentIface, &d.UpstreamInterfaceName,
			&d.FirstSeen, &d.LastSeen, &d.Comment, &d.Nomad, &d.SkipLogin, &d.UserType,
			&d.AssetTag, &d.LocationID,
		); err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		if parentIface.Valid {
			d.ParentInterfaceID = &parentIface.Int64
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetUserFields writes only the operator-managed columns for a device,
// bypassing the scan path entirely.
func (s *Store) SetUserFields(ctx context.Context, mac string, d models.Device) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE devices SET
			comment = ?, nomad = ?, skip_login = ?, user_type = ?, asset_tag = ?, location_id = ?
		WHERE primary_mac = ?`,
		d.Comment, d.Nomad, d.SkipLogin, d.UserType, d.AssetTag, d.LocationID, mac,
	)
	return err
}

// ReplaceInterfaces deletes and re-inserts all interface rows for a
// device, matching the spec invariant that interfaces are transient
// per-scan state rather than persisted across scans.
func (s *Store) ReplaceInterfaces(ctx context.Context, deviceMAC string, ifaces []models.Interface) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM interfaces WHERE device_mac = ?`, deviceMAC); err != nil {
			return fmt.Errorf("clear interfaces: %w", err)
		}
		for _, iface := range ifaces {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO interfaces (device_mac, name, ip, bridge, vlan, poe_watts, poe_standard, link_up, comment)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				deviceMAC, iface.Name, iface.IP, iface.Bridge, iface.VLAN,
				iface.PoEWatts, iface.PoEStandard, iface.LinkUp, iface.Comment,
			)
			if err != nil {
				return fmt.Errorf("insert interface %s/%s: %w", deviceMAC, iface.Name, err)
			}
		}
		return nil
	})
}

// InterfacesForDevice returns the current interface rows for a device.
func (s *Store) InterfacesForDevice(ctx context.Context, deviceMAC string) ([]models.Interface, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_mac, name, ip, bridge, vlan, poe_watts, poe_standard, link_up, comment
		FROM interfaces WHERE device_mac = ? ORDER BY name`, deviceMAC)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Interface
	for rows.Next() {
		var iface models.Interface
		if err := rows.Scan(&iface.ID, &iface.DeviceMAC, &iface.Name, &iface.IP,
			&iface.Bridge, &iface.VLAN, &iface.PoEWatts, &iface.PoEStandard,
			&iface.LinkUp, &iface.Comment); err != nil {
			return nil, err
		}
		out = append(out, iface)
	}
	return out, rows.Err()
}

// InterfacesForNetwork returns every interface row belonging to any
// device in a network, joined through the device's network_id, for the
// topology assembler's single-query load.
func (s *Store) InterfacesForNetwork(ctx context.Context, networkID string) ([]models.Interface, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.device_mac, i.name, i.ip, i.bridge, i.vlan, i.poe_watts, i.poe_standard, i.link_up, i.comment
		FROM interfaces i
		JOIN devices d ON d.primary_mac = i.device_mac
		WHERE d.network_id = ?
		ORDER BY i.device_mac, i.name`, networkID)
	if err != nil {
		return nil, fmt.Errorf("list interfaces for network: %w", err)
	}
	defer rows.Close()

	var out []models.Interface
	for rows.Next() {
		var iface models.Interface
		if err := rows.Scan(&iface.ID, &iface.DeviceMAC, &iface.Name, &iface.IP,
			&iface.Bridge, &iface.VLAN, &iface.PoEWatts, &iface.PoEStandard,
			&iface.LinkUp, &iface.Comment); err != nil {
			return nil, fmt.Errorf("scan interface row: %w", err)
		}
		out = append(out, iface)
	}
	return out, rows.Err()
}

// DhcpLeasesForNetwork returns every lease row for a network.
func (s *Store) DhcpLeasesForNetwork(ctx context.Context, networkID string) ([]models.DhcpLease, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, network_id, mac, ip, hostname FROM dhcp_leases WHERE network_id = ?`, networkID)
	if err != nil {
		return nil, fmt.Errorf("list dhcp leases: %w", err)
	}
	defer rows.Close()

	var out []models.DhcpLease
	for rows.Next() {
		var l models.DhcpLease
		if err := rows.Scan(&l.ID, &l.NetworkID, &l.MAC, &l.IP, &l.Hostname); err != nil {
			return nil, fmt.Errorf("scan dhcp lease row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReplaceDhcpLeases clears a network's lease table and inserts the
// freshly observed set, per scan.
func (s *Store) ReplaceDhcpLeases(ctx context.Context, networkID string, leases []models.DhcpLease) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dhcp_leases WHERE network_id = ?`, networkID); err != nil {
			return fmt.Errorf("clear dhcp leases: %w", err)
		}
		for _, l := range leases {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO dhcp_leases (network_id, mac, ip, hostname) VALUES (?, ?, ?, ?)`,
				networkID, l.MAC, l.IP, l.Hostname,
			)
			if err != nil {
				return fmt.Errorf("insert dhcp lease %s: %w", l.MAC, err)
			}
		}
		return nil
	})
}

// CreateNetwork inserts a new network row.
func (s *Store) CreateNetwork(ctx context.Context, n *models.Network) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO networks (id, name, root_ip, root_username, root_password, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Name, n.RootIP, n.RootUsername, n.RootPassword, n.CreatedAt,
	)
	return err
}

// GetNetwork returns a network by ID.
func (s *Store) GetNetwork(ctx context.Context, id string) (*models.Network, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, root_ip, root_username, root_password, last_scanned_at, created_at
		FROM networks WHERE id = ?`, id)

	var n models.Network
	var lastScanned sql.NullTime
	if err := row.Scan(&n.ID, &n.Name, &n.RootIP, &n.RootUsername, &n.RootPassword, &lastScanned, &n.CreatedAt); err != nil {
		return nil, err
	}
	if lastScanned.Valid {
		n.LastScannedAt = lastScanned.Time
	}
	return &n, nil
}

// TouchNetworkScanned records the time of the most recent scan.
func (s *Store) TouchNetworkScanned(ctx context.Context, id string, when time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE networks SET last_scanned_at = ? WHERE id = ?`, when, id)
	return err
}

// CreateScan inserts a new running scan row.
func (s *Store) CreateScan(ctx context.Context, sc *models.Scan) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	sc.StartedAt = time.Now().UTC()
	sc.Status = models.ScanStatusRunning
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, network_id, status, started_at)
		VALUES (?, ?, ?, ?)`,
		sc.ID, sc.NetworkID, sc.Status, sc.StartedAt,
	)
	return err
}

// FinishScan transitions a scan to a terminal status.
func (s *Store) FinishScan(ctx context.Context, id string, status models.ScanStatus, deviceCount int, failReason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scans SET status = ?, ended_at = ?, device_count = ?, fail_reason = ? WHERE id = ?`,
		status, time.Now().UTC(), deviceCount, failReason, id,
	)
	return err
}

// GetScan returns a scan by ID.
func (s *Store) GetScan(ctx context.Context, id string) (*models.Scan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, network_id, status, started_at, ended_at, device_count, fail_reason
		FROM scans WHERE id = ?`, id)

	var sc models.Scan
	var ended sql.NullTime
	if err := row.Scan(&sc.ID, &sc.NetworkID, &sc.Status, &sc.StartedAt, &ended, &sc.DeviceCount, &sc.FailReason); err != nil {
		return nil, err
	}
	if ended.Valid {
		sc.EndedAt = ended.Time
	}
	return &sc, nil
}

// LatestScanForNetwork returns the most recently started scan for a network.
func (s *Store) LatestScanForNetwork(ctx context.Context, networkID string) (*models.Scan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, network_id, status, started_at, ended_at, device_count, fail_reason
		FROM scans WHERE network_id = ? ORDER BY started_at DESC LIMIT 1`, networkID)

	var sc models.Scan
	var ended sql.NullTime
	if err := row.Scan(&sc.ID, &sc.NetworkID, &sc.Status, &sc.StartedAt, &ended, &sc.DeviceCount, &sc.FailReason); err != nil {
		return nil, err
	}
	if ended.Valid {
		sc.EndedAt = ended.Time
	}
	return &sc, nil
}

// ReconcileOrphanedScans force-transitions any "running" scan to "failed".
// Called once at startup to detect a scan left running by a server
// restart, per the spec's lifetime rule.
func (s *Store) ReconcileOrphanedScans(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scans SET status = 'failed', ended_at = ?, fail_reason = 'server restarted while scan was running'
		WHERE status = 'running'`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AppendScanLog appends one log line. Fire-and-forget from the caller's
// perspective: callers should not block scan progress on its error.
func (s *Store) AppendScanLog(ctx context.Context, log models.ScanLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_logs (scan_id, seq, timestamp, level, message)
		VALUES (?, ?, ?, ?, ?)`,
		log.ScanID, log.Seq, log.Timestamp, log.Level, log.Message,
	)
	return err
}

// ScanLogsAfter returns log lines for a scan with seq > after, ordered ascending.
func (s *Store) ScanLogsAfter(ctx context.Context, scanID string, after int64) ([]models.ScanLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_id, seq, timestamp, level, message
		FROM scan_logs WHERE scan_id = ? AND seq > ? ORDER BY seq`, scanID, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScanLog
	for rows.Next() {
		var l models.ScanLog
		if err := rows.Scan(&l.ID, &l.ScanID, &l.Seq, &l.Timestamp, &l.Level, &l.Message); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertCredential inserts or replaces a credential by ID.
func (s *Store) UpsertCredential(ctx context.Context, c *models.Credential) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, username, password, network_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, password = excluded.password, network_id = excluded.network_id`,
		c.ID, c.Username, c.Password, c.NetworkID,
	)
	return err
}

// CredentialsForNetwork returns root/network-scoped credentials followed
// by global ones, matching the scan's try-order: root-network first,
// then network-scoped, then global.
func (s *Store) CredentialsForNetwork(ctx context.Context, networkID string) ([]models.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, network_id FROM credentials
		WHERE network_id = ? OR network_id IS NULL
		ORDER BY CASE WHEN network_id = ? THEN 0 ELSE 1 END, id`, networkID, networkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Credential
	for rows.Next() {
		var c models.Credential
		var netID sql.NullString
		if err := rows.Scan(&c.ID, &c.Username, &c.Password, &netID); err != nil {
			return nil, err
		}
		if netID.Valid {
			c.NetworkID = &netID.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MatchedCredentialFor returns the credential ID previously known to work
// for mac, if any.
func (s *Store) MatchedCredentialFor(ctx context.Context, mac string) (string, bool, error) {
	var credID string
	err := s.db.QueryRowContext(ctx, `SELECT credential_id FROM matched_devices WHERE mac = ?`, mac).Scan(&credID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return credID, true, nil
}

// RecordMatchedCredential remembers which credential authenticated mac
// successfully, so the next scan tries it first.
func (s *Store) RecordMatchedCredential(ctx context.Context, mac, credentialID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matched_devices (mac, credential_id) VALUES (?, ?)
		ON CONFLICT(mac) DO UPDATE SET credential_id = excluded.credential_id`,
		mac, credentialID,
	)
	return err
}

// SerializePoints marshals a polygon's vertex list for storage.
func SerializePoints(points []models.Point) (string, error) {
	b, err := json.Marshal(points)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DeserializePoints is the inverse of SerializePoints.
func DeserializePoints(s string) ([]models.Point, error) {
	if s == "" {
		return nil, nil
	}
	var points []models.Point
	if err := json.Unmarshal([]byte(s), &points); err != nil {
		return nil, err
	}
	return points, nil
}
