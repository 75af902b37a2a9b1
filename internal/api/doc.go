// Package api implements the astroserve HTTP surface.
//
// New(opts) returns an http.Handler that serves:
//
//	GET  /health                              — liveness, no auth
//	GET  /metrics                             — Prometheus text exposition
//	POST /mapa-astral/calcular                — submit a chart computation; 202 on acceptance
//	GET  /mapa-astral/status                  — latest computation status; 404 when none
//	GET  /mapa-astral/resultado               — full stored result payload
//	GET  /mapa-astral/notifications           — the subject's notification log
//	POST /mapa-astral/notifications/{id}/read — flip one notification's read flag
//
// All endpoints respond with Content-Type: application/json and 405 for
// unsupported methods. Everything under /mapa-astral requires a bearer
// credential; authentication always runs before anything is read from or
// written to the store. Submissions are acknowledged before the computation
// starts — completion is discovered via polling, the notification log, or
// the WebSocket stream.
package api
