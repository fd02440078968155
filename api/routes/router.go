package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wedshare/wedshare-backend/api/controllers"
	"github.com/wedshare/wedshare-backend/api/middleware"
	"github.com/wedshare/wedshare-backend/internal/catalog"
	"github.com/wedshare/wedshare-backend/internal/upload"
	"github.com/wedshare/wedshare-backend/pkg/config"
	"github.com/wedshare/wedshare-backend/pkg/logger"
	"github.com/wedshare/wedshare-backend/pkg/storage/drive"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	driveP drive.Pinger,
	uploadService upload.Service,
	catalogService catalog.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, driveP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/uploads", func(r chi.Router) {
		r.Post("/start", controllers.StartUpload(uploadService, logg))
		r.Post("/chunk", controllers.UploadChunk(uploadService, logg))
		r.Post("/finalize", controllers.FinalizeUpload(uploadService, logg))
		r.Post("/complete", controllers.CompleteUpload(uploadService, logg))
	})

	r.Route("/api/v1/media", func(r chi.Router) {
		r.Get("/", controllers.ListMedia(catalogService, int(cfg.Upload.ListPageSize), logg))
		r.Get("/{fileId}/video", controllers.StreamVideo(catalogService, logg))
	})

	return r
}
