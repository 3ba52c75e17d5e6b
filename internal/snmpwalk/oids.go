package snmpwalk

// SNMPv2-MIB system group (1.3.6.1.2.1.1).
const (
	OIDSysDescr    = "1.3.6.1.2.1.1.1.0"
	OIDSysObjectID = "1.3.6.1.2.1.1.2.0"
	OIDSysName     = "1.3.6.1.2.1.1.5.0"
)

// IF-MIB interface table (1.3.6.1.2.1.2.2.1).
const (
	OIDIfTable       = "1.3.6.1.2.1.2.2.1"
	OIDIfIndex       = "1.3.6.1.2.1.2.2.1.1"
	OIDIfDescr       = "1.3.6.1.2.1.2.2.1.2"
	OIDIfType        = "1.3.6.1.2.1.2.2.1.3"
	OIDIfPhysAddress = "1.3.6.1.2.1.2.2.1.6"
	OIDIfOperStatus  = "1.3.6.1.2.1.2.2.1.8"
)

// BRIDGE-MIB forwarding database (1.3.6.1.2.1.17.4.3.1), dot1dTpFdbTable.
const (
	OIDFdbTable   = "1.3.6.1.2.1.17.4.3.1"
	OIDFdbAddress = "1.3.6.1.2.1.17.4.3.1.1"
	OIDFdbPort    = "1.3.6.1.2.1.17.4.3.1.2"
)

// IfTypeEthernetCSMACD is the ifType value for Ethernet interfaces
// (RFC 1213 IANAifType).
const IfTypeEthernetCSMACD = 6
