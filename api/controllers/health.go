package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/partnerhub-backend/api/responses"
	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by the database and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PartnerHub-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency concurrently. A nil pinger is
// reported as "disabled" and does not fail readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, redis Pinger) http.HandlerFunc {
	deps := map[string]Pinger{"database": db, "redis": redis}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PartnerHub-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var mu sync.Mutex
		checks := make(map[string]string, len(deps))
		g, gctx := errgroup.WithContext(ctx)
		for name, p := range deps {
			if p == nil {
				checks[name] = "disabled"
				continue
			}
			g.Go(func() error {
				err := p.Ping(gctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					checks[name] = "down"
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				}
				checks[name] = "ok"
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			mu.Lock()
			details := make(map[string]string, len(checks))
			for k, v := range checks {
				details[k] = v
			}
			mu.Unlock()
			responses.WriteError(r.Context(), logg, w, pkgerrors.As(err).WithDetails(details))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
