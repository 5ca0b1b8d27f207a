package api

import (
	"net/http"
	"time"

	"codementor/internal/api/handler"
	"codementor/internal/app/service"
	"codementor/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Auth       *service.AuthService
	Problems   *service.ProblemService
	Submission *service.SubmissionService
	Progress   *service.ProgressService
}

// NewRouter mounts the API. A nil gatherer leaves /metrics unmounted.
func NewRouter(svc Services, gatherer prometheus.Gatherer, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(requestTimeout))
	}

	// Searches "Authorization: Bearer T" and puts the verified token in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(svc.Auth)
		v1.Group(authHandler.RegisterRoutes)

		problemHandler := handler.NewProblemHandler(svc.Problems)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(svc.Submission)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		progressHandler := handler.NewProgressHandler(svc.Progress)
		v1.Route("/progress", progressHandler.RegisterRoutes)
	})

	return r
}
