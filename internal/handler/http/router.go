package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/attendance-bot/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the deployment details the router logs and trusts.
type RouterOptions struct {
	Env            string
	Version        string
	AllowedOrigins []string
	LogLevel       slog.Level
}

type Handlers struct {
	Attendance   AttendanceHandler
	Auth         AuthHandler
	Report       ReportHandler
	Leave        LeaveHandler
	Notification NotificationHandler
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-bot"),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: false,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	// Location handshake, reached from the link sent in chat
	r.Get("/gps/{token}", h.Attendance.LocationPage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/handshakes/report", h.Attendance.ReportLocation)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", h.Auth.IssueToken)
		})

		// SSE authenticates with its own short-lived token
		r.Get("/events/stream", h.Notification.Stream)

		// Requires a supervisor access token
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireSupervisor)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/today", h.Report.Today)
				r.Get("/month", h.Report.Month)
			})

			r.Get("/leave-requests", h.Leave.ListRequests)
			r.Get("/events/token", h.Notification.GetSSEToken)
		})
	})
	return r
}

