package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gradekit/speed-grader/internal/auth"
	"github.com/gradekit/speed-grader/internal/config"
	handlers "github.com/gradekit/speed-grader/internal/handlers/v1alpha1"
	"github.com/gradekit/speed-grader/pkg/metrics"
	"github.com/gradekit/speed-grader/pkg/middleware"
)

const gracefulShutdownTimeout = 5 * time.Second

type Server struct {
	cfg      *config.Config
	jobSrv   handlers.JobService
	listener net.Listener
}

// New returns a new instance of the grader API server.
func New(cfg *config.Config, jobSrv handlers.JobService, listener net.Listener) *Server {
	return &Server{
		cfg:      cfg,
		jobSrv:   jobSrv,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return err
	}

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.cfg.Service.BaseUrl},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	h := handlers.NewServiceHandler(s.jobSrv)

	router.Get("/health", h.Health)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api/v1/grading", func(r chi.Router) {
		r.Use(authenticator.Authenticator)
		r.Post("/jobs", h.CreateGradingJob)
		r.Get("/jobs/{id}", h.GetGradingJob)
		r.Post("/jobs/{id}/adjustments", h.ApplyAdjustments)
		r.Get("/jobs/{id}/report", h.GetGradingReport)
		r.Post("/post", h.PostGrades)
		r.Get("/history", h.ListHistory)
	})

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
