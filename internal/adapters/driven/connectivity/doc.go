// Package connectivity provides network-state providers for the sync
// monitor.
//
// Probe polls the API health endpoint, FileSignal watches a state file
// written by the host runtime, and Static is set directly.
package connectivity
