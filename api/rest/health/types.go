package health

import "context"

// checks the backing database; pgxpool.Pool.Ping and sql.DB.PingContext both fit
type PingFunc func(ctx context.Context) error

// Response represents the health check response
type Response struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version,omitempty"`
	Database string `json:"database"`
}

type PingResponse struct {
	Message string `json:"message"`
}
