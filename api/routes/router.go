package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/filedrop-backend/api/controllers"
	"github.com/angelmondragon/filedrop-backend/api/middleware"
	"github.com/angelmondragon/filedrop-backend/internal/uploads"
	"github.com/angelmondragon/filedrop-backend/internal/uploads/resumable"
	"github.com/angelmondragon/filedrop-backend/pkg/config"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
)

// NewRouter assembles the HTTP surface of the upload service.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	deps map[string]controllers.Pinger,
	uploadService uploads.Service,
	resumableHandler *resumable.Handler,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	// Content access is gated by expiration and the optional secret, not by
	// the session, so shared links work for anonymous readers.
	r.Get("/api/v1/uploads/{id}/content", controllers.UploadContent(uploadService, logg))

	// Protocol discovery carries no upload state and stays public; clients
	// probe it before they hold credentials.
	if resumableHandler != nil {
		r.Options("/api/v1/tus", resumableHandler.Options)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", controllers.UploadCreate(uploadService, logg))
			r.Get("/", controllers.UploadList(uploadService, logg))
			r.Get("/{id}", controllers.UploadInfo(uploadService, logg))
			r.Delete("/{id}", controllers.UploadDelete(uploadService, logg))
			r.Post("/{id}/transfer", controllers.UploadTransfer(uploadService, logg))
		})

		if resumableHandler != nil {
			r.Route("/tus", func(r chi.Router) {
				r.Head("/{id}", resumableHandler.Head)
				r.Patch("/{id}", resumableHandler.Patch)
				r.Delete("/{id}", resumableHandler.Delete)
			})
		}
	})

	return r
}
