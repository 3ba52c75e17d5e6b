package store

// Migrations returns netspan's database migrations in ascending version
// order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create networks, scans, and scan_logs tables",
			Statements: []string{
				`CREATE TABLE networks (
					id              TEXT PRIMARY KEY,
					name            TEXT NOT NULL,
					root_ip         TEXT NOT NULL,
					root_username   TEXT NOT NULL DEFAULT '',
					root_password   TEXT NOT NULL DEFAULT '',
					last_scanned_at DATETIME,
					created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE scans (
					id           TEXT PRIMARY KEY,
					network_id   TEXT NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
					status       TEXT NOT NULL DEFAULT 'running',
					started_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					ended_at     DATETIME,
					device_count INTEGER NOT NULL DEFAULT 0,
					fail_reason  TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_scans_network ON scans(network_id)`,
				`CREATE INDEX idx_scans_status ON scans(status)`,
				`CREATE TABLE scan_logs (
					id        INTEGER PRIMARY KEY AUTOINCREMENT,
					scan_id   TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
					seq       INTEGER NOT NULL,
					timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					level     TEXT NOT NULL DEFAULT 'info',
					message   TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_scan_logs_scan_seq ON scan_logs(scan_id, seq)`,
			},
		},
		{
			Version:     2,
			Description: "create devices and interfaces tables",
			Statements: []string{
				`CREATE TABLE devices (
					primary_mac             TEXT PRIMARY KEY,
					network_id              TEXT NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
					hostname                TEXT NOT NULL DEFAULT '',
					ip                      TEXT NOT NULL DEFAULT '',
					vendor                  TEXT NOT NULL DEFAULT '',
					model                   TEXT NOT NULL DEFAULT '',
					serial                  TEXT NOT NULL DEFAULT '',
					firmware_version        TEXT NOT NULL DEFAULT '',
					device_type             TEXT NOT NULL DEFAULT 'unknown',
					accessible              INTEGER NOT NULL DEFAULT 0,
					open_ports              TEXT NOT NULL DEFAULT '[]',
					driver                  TEXT NOT NULL DEFAULT '',
					discovery_method        TEXT NOT NULL DEFAULT '',
					parent_interface_id     INTEGER,
					upstream_interface_name TEXT NOT NULL DEFAULT '',
					first_seen              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					last_seen               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					comment                 TEXT NOT NULL DEFAULT '',
					nomad                   INTEGER NOT NULL DEFAULT 0,
					skip_login              INTEGER NOT NULL DEFAULT 0,
					user_type               TEXT NOT NULL DEFAULT '',
					asset_tag               TEXT NOT NULL DEFAULT '',
					location_id             TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_devices_network ON devices(network_id)`,
				`CREATE INDEX idx_devices_ip ON devices(ip)`,
				`CREATE TABLE interfaces (
					id           INTEGER PRIMARY KEY AUTOINCREMENT,
					device_mac   TEXT NOT NULL REFERENCES devices(primary_mac) ON DELETE CASCADE,
					name         TEXT NOT NULL,
					ip           TEXT NOT NULL DEFAULT '',
					bridge       TEXT NOT NULL DEFAULT '',
					vlan         TEXT NOT NULL DEFAULT '',
					poe_watts    REAL NOT NULL DEFAULT 0,
					poe_standard TEXT NOT NULL DEFAULT '',
					link_up      INTEGER NOT NULL DEFAULT 0,
					comment      TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_interfaces_device ON interfaces(device_mac)`,
			},
		},
		{
			Version:     3,
			Description: "create dhcp_leases table",
			Statements: []string{
				`CREATE TABLE dhcp_leases (
					id         INTEGER PRIMARY KEY AUTOINCREMENT,
					network_id TEXT NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
					mac        TEXT NOT NULL,
					ip         TEXT NOT NULL,
					hostname   TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_dhcp_leases_network ON dhcp_leases(network_id)`,
				`CREATE INDEX idx_dhcp_leases_mac ON dhcp_leases(mac)`,
			},
		},
		{
			Version:     4,
			Description: "create credentials and matched_devices tables",
			Statements: []string{
				`CREATE TABLE credentials (
					id         TEXT PRIMARY KEY,
					username   TEXT NOT NULL,
					password   TEXT NOT NULL DEFAULT '',
					network_id TEXT REFERENCES networks(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_credentials_network ON credentials(network_id)`,
				`CREATE TABLE matched_devices (
					mac           TEXT PRIMARY KEY,
					credential_id TEXT NOT NULL REFERENCES credentials(id) ON DELETE CASCADE
				)`,
			},
		},
		{
			Version:     5,
			Description: "create floorplans, locations, and location_polygons tables",
			Statements: []string{
				`CREATE TABLE floorplans (
					id        TEXT PRIMARY KEY,
					name      TEXT NOT NULL,
					file_path TEXT NOT NULL,
					mime_type TEXT NOT NULL DEFAULT 'application/pdf',
					width_pt  REAL NOT NULL DEFAULT 0,
					height_pt REAL NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE locations (
					id           TEXT PRIMARY KEY,
					floorplan_id TEXT NOT NULL REFERENCES floorplans(id) ON DELETE CASCADE,
					name         TEXT NOT NULL
				)`,
				`CREATE INDEX idx_locations_floorplan ON locations(floorplan_id)`,
				`CREATE TABLE location_polygons (
					id          INTEGER PRIMARY KEY AUTOINCREMENT,
					location_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
					points      TEXT NOT NULL DEFAULT '[]'
				)`,
				`CREATE INDEX idx_location_polygons_location ON location_polygons(location_id)`,
			},
		},
	}
}
