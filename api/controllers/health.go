package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/filedrop-backend/api/responses"
	"github.com/angelmondragon/filedrop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
)

const readyCheckTimeout = 3 * time.Second

// Pinger is the minimal health surface each dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Filedrop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency. Nil pingers are skipped so the
// worker-less API deployments can reuse the handler.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Filedrop-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		status := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				status[name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(status))
				return
			}
			status[name] = "up"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
