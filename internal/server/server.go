package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vincentbai/visittrace-agent/internal/metrics"
	"github.com/vincentbai/visittrace-agent/internal/models"
	"github.com/vincentbai/visittrace-agent/internal/tracker"
)

type NavigationHandler interface {
	HandleNavigation(ctx context.Context, rawURL string) tracker.Outcome
}

type CookieSink interface {
	ApplyChanges(ctx context.Context, changes []models.CookieChange) error
}

const defaultWriteTimeout = 30 * time.Second

// WriteTimeoutFor returns a write timeout long enough for a navigation
// request that waits on a report bounded by reportTimeout.
func WriteTimeoutFor(reportTimeout time.Duration) time.Duration {
	if budget := reportTimeout + 5*time.Second; budget > defaultWriteTimeout {
		return budget
	}
	return defaultWriteTimeout
}

type Options struct {
	// Navigations is nil when identity acquisition failed; the navigation
	// route is then never installed.
	Navigations  NavigationHandler
	Cookies      CookieSink
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Logger       *zap.Logger
	WriteTimeout time.Duration // defaults to 30s
}

type Server struct {
	address string
	opts    Options
	server  *http.Server
}

func NewServer(address string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		address: address,
		opts:    opts,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleNavigations(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var navigation models.Navigation
	if err := json.NewDecoder(request.Body).Decode(&navigation); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	outcome := s.opts.Navigations.HandleNavigation(request.Context(), navigation.URL)
	s.opts.Logger.Debug("navigation handled",
		zap.Int("tab_id", navigation.TabID),
		zap.String("outcome", string(outcome)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCookies(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var batch models.CookieBatch
	if err := json.NewDecoder(request.Body).Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(batch.Changes) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.opts.Cookies.ApplyChanges(request.Context(), batch.Changes); err != nil {
		s.opts.Logger.Error("cookie mirror update failed", zap.Int("changes", len(batch.Changes)), zap.Error(err))
		http.Error(w, "Failed to store cookies", http.StatusInternalServerError)
		return
	}
	for _, change := range batch.Changes {
		s.opts.Metrics.ObserveCookieChange(change.Removed)
	}
	w.WriteHeader(http.StatusNoContent) // success, no body
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/cookies", s.handleCookies)
	if s.opts.Navigations != nil {
		mux.HandleFunc("/navigations", s.handleNavigations)
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.setupRoutes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: s.opts.WriteTimeout,
	}

	serveErrors := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("VisitTrace agent listening", zap.String("address", s.address))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrors <- err
		}
		close(serveErrors)
	}()

	select {
	case err, ok := <-serveErrors:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.opts.Logger.Info("Shutting down server...")

	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownContext); err != nil {
		return err
	}

	s.opts.Logger.Info("Server exited")
	return nil
}
