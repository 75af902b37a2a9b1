// Package notify fans a subject's freshly recorded notification out to
// delivery sinks: configured webhooks and the websocket hub. Delivery is
// best-effort; the notification is already durable in the store before any
// sink sees it, so sink failures are logged and dropped.
package notify
