package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// request limits
const (
	generalLimit = 5000
	routeLimit   = 500
	timePeriod   = time.Minute
)

const ErrTooManyRouteRequests = `{"error": "too many requests to /route"}`

// RegisterRoutes creates the tribunal API routes.
func RegisterRoutes(s *Server) {
	s.Router.Use(rateLimit(s.Logger, generalLimit))

	addRoute(s.Router, "POST", "/validators", s.setValidatorsHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases", s.submitCaseHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "GET", "/cases/{id}", s.getCaseHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases/{id}/randomness", s.randomnessHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases/{id}/select", s.selectJurorsHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases/{id}/vote", s.voteHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases/{id}/commit", s.commitHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases/{id}/reveal", s.revealHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases/{id}/mpc/init", s.initMPCHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases/{id}/mpc/share", s.mpcShareHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/cases/{id}/mpc/decrypt", s.mpcDecryptHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/evidence/{id}", s.initEvidenceHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/evidence/{id}/verify", s.evidenceShareHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "GET", "/health_check", s.healthHandler, rateLimit(s.Logger, routeLimit))
}

// Add route with optional middleware
func addRoute(router chi.Router, method, path string, handler http.HandlerFunc, middleware ...func(http.Handler) http.Handler) {
	if len(middleware) > 0 {
		router.With(middleware...).MethodFunc(method, path, handler)
	} else {
		router.MethodFunc(method, path, handler)
	}
}

func rateLimit(logger *zap.Logger, limit int) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		timePeriod,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("rate limit exceeded",
				zap.String("ip", r.RemoteAddr),
				zap.String("path", r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(ErrTooManyRouteRequests))
		}),
	)
}
