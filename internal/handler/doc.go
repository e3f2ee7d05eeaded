// Package handler implements HTTP request handlers for the IntraTEL API.
//
// # Handlers
//
// SessionHandler manages lab sessions: creation, reset, the session's
// topology (links, node and port positions), console commands on the
// router or the PC, and topology import/export.
//
// LabHandler saves session topologies as named labs and loads them back.
//
// Middleware provides panic recovery, CORS and request logging.
//
// # API Design
//
// All handlers follow REST conventions:
//   - GET for retrieval
//   - POST for creation and actions
//   - PUT for position updates
//   - DELETE for removal
//
// Errors are returned as JSON:
//
//	{"error": "Failed to create link", "details": "port already in use: R1 port 0"}
//
// A console command returns its immediate output. Ping probes that follow
// are delivered as console_output events on GET /events?session={id}.
package handler
