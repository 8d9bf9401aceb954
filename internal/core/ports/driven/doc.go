// Package driven defines the outbound ports of the sync engine: the
// connector contract, persistence stores, the change emitter and the
// connector factory. Adapters implement these interfaces.
package driven
