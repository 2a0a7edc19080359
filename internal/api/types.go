package api

import "github.com/stacklok/spatial-anchors/internal/session"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}

// AnchorsResponse lists the live anchors of the session
type AnchorsResponse struct {
	Session string               `json:"session"`
	Total   int                  `json:"total"`
	Anchors []session.AnchorView `json:"anchors"`
}
