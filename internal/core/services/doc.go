// Package services implements the driving ports: the sync engine, the
// connectivity monitor and settings. Services depend only on domain types
// and driven port interfaces.
package services
