package server

import (
	"context"
	"net/http"

	goPasswordless "github.com/MrEthical07/goPasswordless"
)

// PathHealth is where cmd/passwordless mounts HealthHandler.
const PathHealth = "/healthz"

type HealthChecker interface {
	Health(ctx context.Context) goPasswordless.HealthStatus
}

type HealthResponse struct {
	RedisAvailable bool    `json:"redisAvailable"`
	RedisLatencyMs float64 `json:"redisLatencyMs"`
}

// HealthHandler reports 200 while Redis answers and 503 otherwise.
func HealthHandler(c HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := c.Health(r.Context())
		code := http.StatusOK
		if !status.RedisAvailable {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, HealthResponse{
			RedisAvailable: status.RedisAvailable,
			RedisLatencyMs: float64(status.RedisLatency.Microseconds()) / 1000,
		})
	})
}
