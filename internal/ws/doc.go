// Package ws streams notifications to connected clients over WebSocket, so
// a browser can learn about a finished chart without polling. Connections
// authenticate on upgrade and are registered under their subject; the hub
// implements notify.Sink and pushes each durably recorded notification to
// that subject's connections only.
package ws
