package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/private-leagues-api/internal/api/handlers"
	"github.com/isdelr/private-leagues-api/internal/api/middleware"
	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/isdelr/private-leagues-api/internal/monitoring"
	"github.com/isdelr/private-leagues-api/internal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators the router hands to handlers and
// access stages.
type Dependencies struct {
	Users   services.UserServiceProvider
	Leagues services.LeagueServiceProvider
	Events  services.EventServiceProvider
	Tokens  handlers.TokenService
	Metrics *monitoring.Metrics

	AppKeys        []string
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(chimw.Recoverer)
	r.Use(deps.Metrics.Instrument)
	r.Use(chimw.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.AppKeyHeader},
		MaxAge:         300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens)
	userHandler := handlers.NewUserHandler(deps.Users)
	leagueHandler := handlers.NewLeagueHandler(deps.Leagues)
	eventHandler := handlers.NewEventHandler(deps.Events)

	// Access pipelines
	authenticated := middleware.NewPipeline(deps.Metrics.RecordRejection,
		middleware.AuthenticationGate(deps.Tokens))
	appMember := middleware.NewPipeline(deps.Metrics.RecordRejection,
		middleware.AppKeyGate(deps.AppKeys),
		middleware.AuthenticationGate(deps.Tokens))
	leagueMember := appMember.Then(middleware.LeagueScopeStage("leagueID"))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Api is working"))
	})
	r.Handle("/metrics", deps.Metrics.Handler())

	r.Post("/login", authHandler.Login)
	r.Post("/register", authHandler.Register)
	r.Post("/check-token", authHandler.CheckToken)

	r.Route("/users", func(r chi.Router) {
		r.Use(authenticated.Handler)
		r.Get("/me", userHandler.GetMe)
		r.Patch("/me", userHandler.UpdateMe)
		r.Delete("/me", userHandler.DeleteMe)
		r.Get("/{id}", userHandler.Get)
	})

	r.Route("/leagues", func(r chi.Router) {
		r.With(appMember.Handler).Get("/", leagueHandler.List)
		r.With(appMember.Handler).Post("/", leagueHandler.Create)

		r.Route("/{leagueID}", func(r chi.Router) {
			r.Use(leagueMember.Handler)
			r.Get("/", leagueHandler.Get)
			r.Patch("/", leagueHandler.Update)
			r.Delete("/", leagueHandler.Delete)

			r.Post("/admins", leagueHandler.AddMember(models.RoleAdmin))
			r.Delete("/admins", leagueHandler.RemoveMember(models.RoleAdmin))
			r.Post("/users", leagueHandler.AddMember(models.RoleUser))
			r.Delete("/users", leagueHandler.RemoveMember(models.RoleUser))

			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.List)
				r.Post("/", eventHandler.Create)
				r.Get("/{eventID}", eventHandler.Get)
				r.Patch("/{eventID}", eventHandler.Update)
				r.Delete("/{eventID}", eventHandler.Delete)
			})
		})
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	level := zerolog.InfoLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
