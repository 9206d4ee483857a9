// Package status tracks per-source bridge runtime state and serves it over
// HTTP and WebSocket.
//
// Store holds one Entry per configured source, in configuration order. The
// poller records poll outcomes; readers derive a state (ok, stale, failing,
// unknown) at read time, so the store itself never runs a background loop.
//
// NewHandler(store) returns the REST surface:
//
//	GET /api/v1/health       - overall state and per-state counts
//	GET /api/v1/sources      - all sources in configuration order
//	GET /api/v1/sources/{id} - single source; 404 if unknown
//	GET /api/v1/snapshot     - full dump: all sources + generated_at
//
// All endpoints respond with Content-Type: application/json and return 405
// for non-GET methods.
//
// Hub broadcasts the same snapshot to WebSocket clients on a fixed interval.
// Message format sent to clients:
//
//	{
//	  "event": "status",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// APIKeyMiddleware optionally guards both surfaces with a shared key; when no
// key is configured all requests pass through.
package status
