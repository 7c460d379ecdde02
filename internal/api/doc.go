// Package api provides the HTTP REST API for pairgen.
//
// It exposes device listing, the four device operations and the operation
// history to local tooling. The server follows the same lifecycle pattern
// as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
//
// # Endpoints
//
// All routes live under /api/v1:
//
//	GET  /health                                 server and backend status
//	GET  /devices[?cached=true]                  reachable devices in discovery order
//	GET  /devices/{identity}                     one device
//	POST /devices/{identity}/export              {"destination": "..."}
//	POST /devices/{identity}/wifi/test           {"address": "..."} for USB devices
//	POST /devices/{identity}/wifi/enable
//	POST /devices/{identity}/pairing/regenerate  {"destination": "..."}
//	GET  /history                                operation history
//
// Failures are returned as {"status", "code", "kind", "message"} where kind
// is the orchestrator's failure kind (for example "PreconditionUnmet").
//
// # Security
//
// The API has no authentication and writes files wherever a request asks.
// It binds to 127.0.0.1 by default and must not be exposed beyond the host.
package api
