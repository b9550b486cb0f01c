// Package server holds the small pieces of server-wide policy that sit
// above the registry/queue/engine but below the dispatcher: admission
// control today, a natural home for anything else that needs a single
// server-context value rather than a global.
package server

import "github.com/rs/zerolog"

// AdmissionGuard enforces one admission-control rule: reject new
// connections once onlineCount >= MaxConnections. It is a small guard
// object consulted once per accept, logging its decision.
type AdmissionGuard struct {
	maxConnections int
	logger         zerolog.Logger
}

// NewAdmissionGuard creates a guard enforcing maxConnections.
func NewAdmissionGuard(maxConnections int, logger zerolog.Logger) *AdmissionGuard {
	return &AdmissionGuard{maxConnections: maxConnections, logger: logger}
}

// Allow reports whether a new connection may be accepted given the
// registry's current online count.
func (g *AdmissionGuard) Allow(onlineCount int) bool {
	if onlineCount >= g.maxConnections {
		g.logger.Warn().
			Int("online", onlineCount).
			Int("max_connections", g.maxConnections).
			Msg("connection rejected: at max connections")
		return false
	}
	return true
}
