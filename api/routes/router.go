package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/partyhub-backend/api/controllers"
	"github.com/angelmondragon/partyhub-backend/api/middleware"
	"github.com/angelmondragon/partyhub-backend/internal/lifecycle"
	"github.com/angelmondragon/partyhub-backend/pkg/config"
	"github.com/angelmondragon/partyhub-backend/pkg/db"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/partyhub-backend/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs.
type RedisStore interface {
	pkgredis.Pinger
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisStore,
	lifecycleService lifecycle.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	applicationPolicy := middleware.NewRateLimitPolicy(
		"applications",
		cfg.RateLimit.ApplicationWindow,
		cfg.RateLimit.ApplicationLimit,
	)
	idempotent := middleware.Idempotency(redisClient, cfg.Idempotency.TTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/party-types", controllers.ListPartyTypes(lifecycleService, logg))
		r.Get("/parties", controllers.ListParties(lifecycleService, logg))
		r.Get("/parties/{partyId}", controllers.GetParty(lifecycleService, logg))
		r.Get("/parties/{partyId}/recruitments", controllers.ListRecruitments(lifecycleService, logg))
		r.Get("/parties/{partyId}/recruitments/{recruitmentId}", controllers.GetRecruitment(lifecycleService, logg))
		r.Get("/parties/{partyId}/members", controllers.ListMembers(lifecycleService, logg))
		r.Get("/recruitments/{recruitmentId}", controllers.FindRecruitment(lifecycleService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/ping", controllers.PrivatePing())

			r.Post("/parties", controllers.CreateParty(lifecycleService, logg))
			r.Patch("/parties/{partyId}", controllers.UpdateParty(lifecycleService, logg))
			r.Delete("/parties/{partyId}", controllers.DeleteParty(lifecycleService, logg))
			r.Delete("/parties/{partyId}/image", controllers.DeletePartyImage(lifecycleService, logg))
			r.Post("/parties/{partyId}/end", controllers.EndParty(lifecycleService, logg))
			r.Post("/parties/{partyId}/leave", controllers.LeaveParty(lifecycleService, logg))

			r.Post("/parties/{partyId}/recruitments", controllers.CreateRecruitment(lifecycleService, logg))
			r.Post("/parties/{partyId}/recruitments/batch", controllers.CreateRecruitments(lifecycleService, logg))
			r.Post("/parties/{partyId}/recruitments/batch-delete", controllers.BatchDeleteRecruitments(lifecycleService, logg))
			r.Patch("/parties/{partyId}/recruitments/{recruitmentId}", controllers.UpdateRecruitment(lifecycleService, logg))
			r.Delete("/parties/{partyId}/recruitments/{recruitmentId}", controllers.DeleteRecruitment(lifecycleService, logg))

			r.With(
				middleware.RateLimit(applicationPolicy, redisClient, logg),
				idempotent,
			).Post("/parties/{partyId}/recruitments/{recruitmentId}/applications", controllers.SubmitApplication(lifecycleService, logg))
			r.Get("/parties/{partyId}/recruitments/{recruitmentId}/applications", controllers.ListApplications(lifecycleService, logg))
			r.Get("/parties/{partyId}/recruitments/{recruitmentId}/applications/me", controllers.MyApplication(lifecycleService, logg))
			r.With(idempotent).Post("/parties/{partyId}/applications/{applicationId}/approve", controllers.ApproveApplication(lifecycleService, logg))
			r.With(idempotent).Post("/parties/{partyId}/applications/{applicationId}/reject", controllers.RejectApplication(lifecycleService, logg))

			r.Post("/parties/{partyId}/members/batch-delete", controllers.BatchRemoveMembers(lifecycleService, logg))
			r.Post("/parties/{partyId}/members/delegate", controllers.DelegateMaster(lifecycleService, logg))
			r.Delete("/parties/{partyId}/members/{partyUserId}", controllers.RemoveMember(lifecycleService, logg))
			r.Patch("/parties/{partyId}/members/{partyUserId}/authority", controllers.ChangeMemberAuthority(lifecycleService, logg))
		})
	})

	return r
}
