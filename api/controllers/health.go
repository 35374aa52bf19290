package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/parkfinder-backend/api/responses"
	"github.com/angelmondragon/parkfinder-backend/pkg/config"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
)

const healthPingTimeout = 2 * time.Second

// Pinger is anything whose connectivity can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
	Redis       string    `json:"redis"`
}

// Health reports dependency status. The database is required; Redis only degrades the report.
func Health(cfg *config.Config, logg *logger.Logger, database, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Success:     true,
			Message:     "ParkFinder API is running",
			Timestamp:   time.Now().UTC(),
			Environment: cfg.App.Env,
			Database:    probe(r.Context(), database),
			Redis:       probe(r.Context(), cache),
		}

		status := http.StatusOK
		if resp.Database != "connected" {
			status = http.StatusServiceUnavailable
			resp.Success = false
			resp.Message = "database unavailable"
		}
		if status != http.StatusOK || resp.Redis != "connected" {
			logg.Warn(logg.WithFields(r.Context(), map[string]any{
				"database": resp.Database,
				"redis":    resp.Redis,
			}), "health.degraded")
		}

		responses.WriteJSON(w, status, resp)
	}
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
