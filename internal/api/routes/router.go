package routes

import (
	"net/http"

	"github.com/activmedica/backend/internal/api/handlers"
	"github.com/activmedica/backend/internal/api/middleware"
	"github.com/activmedica/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	authHandler   *handlers.AuthHandler
	reportHandler *handlers.ReportHandler
	chatHandler   *handlers.ChatHandler

	resolver middleware.TokenResolver
	metrics  *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	authHandler *handlers.AuthHandler,
	reportHandler *handlers.ReportHandler,
	chatHandler *handlers.ChatHandler,
	resolver middleware.TokenResolver,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		authHandler:   authHandler,
		reportHandler: reportHandler,
		chatHandler:   chatHandler,

		resolver: resolver,
		metrics:  metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Auth endpoints
	r.mux.HandleFunc("POST /api/auth/signup", r.authHandler.Signup)
	r.mux.HandleFunc("POST /api/auth/login", r.authHandler.Login)

	// Everything past this point requires a bearer token
	authed := middleware.AuthMiddleware(r.resolver)

	r.mux.Handle("POST /api/auth/logout", authed(http.HandlerFunc(r.authHandler.Logout)))

	// Report endpoints
	r.mux.Handle("POST /api/reports", authed(http.HandlerFunc(r.reportHandler.GenerateReport)))
	r.mux.Handle("GET /api/reports", authed(http.HandlerFunc(r.reportHandler.ListReports)))

	// Chat endpoints
	r.mux.Handle("POST /api/chat/enter", authed(http.HandlerFunc(r.chatHandler.EnterChat)))
	r.mux.Handle("POST /api/chat/query", authed(http.HandlerFunc(r.chatHandler.Query)))
	r.mux.Handle("GET /api/chat/history", authed(http.HandlerFunc(r.chatHandler.GetHistory)))

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so error responses also get CORS headers.

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
