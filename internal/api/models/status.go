package models

// StatusResponse reports API liveness and database reachability.
type StatusResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
	Database     string `json:"database"`
	TotalResorts *int   `json:"total_resorts,omitempty"`
}

// Database states reported by the status endpoint.
const (
	DatabaseConnected = "connected"
	DatabaseError     = "error"
)

// HealthResponse is the load-balancer liveness body.
type HealthResponse struct {
	Status string `json:"status"`
}
