package controllers

import (
	"net/http"

	"github.com/wedshare/wedshare-backend/api/responses"
	"github.com/wedshare/wedshare-backend/pkg/config"
	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
	"github.com/wedshare/wedshare-backend/pkg/logger"
	"github.com/wedshare/wedshare-backend/pkg/storage/drive"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WedShare-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the storage backend is reachable before reporting
// ready. A dead backend means every upload and gallery read would fail.
func HealthReady(cfg *config.Config, logg *logger.Logger, driveP drive.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WedShare-Env", cfg.App.Env)

		if driveP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "storage client not configured"))
			return
		}
		if err := driveP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage backend unreachable"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
