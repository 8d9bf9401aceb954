// Package domain contains the core business entities of the inlet sync
// engine: providers, connections, remote items, change records, sync state
// and sync jobs. It has no dependencies on adapters or external services.
package domain
