// Package server exposes the dashboard REST API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"jenkins-monitor/src/auth"
	"jenkins-monitor/src/logger"
	"jenkins-monitor/src/provider"
	"jenkins-monitor/src/stages"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "jenkins-monitor"

// Server serves build data from one CI provider.
type Server struct {
	provider provider.Provider
	resolver *stages.Resolver
	issuer   *auth.Issuer
	log      logger.Logger
}

// New creates a server. Every /api route requires a token signed by issuer.
func New(p provider.Provider, issuer *auth.Issuer, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Server{
		provider: p,
		resolver: stages.NewResolver(p, log),
		issuer:   issuer,
		log:      log,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	// Folder jobs arrive as team%2Fapp and must stay one path variable.
	r.UseEncodedPath()
	r.Use(corsMiddleware)
	r.Use(s.logMiddleware)

	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(s.issuer))
	api.Use(auth.RequirePermission(auth.PermBuildRead))

	api.HandleFunc("/jobs", s.handleJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{job}/parameters", s.handleParameters).Methods(http.MethodGet)
	api.HandleFunc("/builds/{job}", s.handleBuilds).Methods(http.MethodGet)
	api.HandleFunc("/builds/{job}/{number:[0-9]+}", s.handleBuild).Methods(http.MethodGet)
	api.HandleFunc("/builds/{job}/{number:[0-9]+}/logs", s.handleLogs).Methods(http.MethodGet)
	api.HandleFunc("/builds/{job}/{number:[0-9]+}/stages", s.handleStages).Methods(http.MethodGet)

	return r
}

// ListenAndServe serves on addr until ctx is done, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
