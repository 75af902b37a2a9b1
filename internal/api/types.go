package api

import "github.com/astroserve/astroserve/internal/chart"

// AcceptedResponse is the payload for a 202 from POST /mapa-astral/calcular.
type AcceptedResponse struct {
	Message       string `json:"message"`
	Status        string `json:"status"`
	EstimatedTime string `json:"estimated_time"`
}

// ValidationResponse is the 400 payload listing every field error.
type ValidationResponse struct {
	Error   string             `json:"error"`
	Details []chart.FieldError `json:"details"`
}

// StatusResponse is the payload for GET /mapa-astral/status. The result
// payload itself is not echoed here; HasResult signals its presence and
// GET /mapa-astral/resultado returns it.
type StatusResponse struct {
	Status     string `json:"status"`
	ComputedAt string `json:"computed_at"` // RFC3339
	HasResult  bool   `json:"has_result"`
	Error      string `json:"error,omitempty"`
}

// ResultResponse is the payload for GET /mapa-astral/resultado.
type ResultResponse struct {
	Status     string         `json:"status"`
	ComputedAt string         `json:"computed_at"` // RFC3339
	Input      chart.Input    `json:"input"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// NotificationResponse is one entry in GET /mapa-astral/notifications.
type NotificationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"` // RFC3339
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
