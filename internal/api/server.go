package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/metrics"
	"github.com/knowledge-engine/docsearch/internal/search"
)

//go:embed static/index.html static/index.js
var staticFiles embed.FS

type Server struct {
	Searcher      search.Searcher
	Logger        *logrus.Entry
	Router        *http.ServeMux
	Metrics       *metrics.Metrics
	MaxQueryBytes int64
}

func NewServer(searcher search.Searcher, logger *logrus.Entry, m *metrics.Metrics) *Server {
	s := &Server{
		Searcher:      searcher,
		Logger:        logger.WithField("component", "api"),
		Router:        http.NewServeMux(),
		Metrics:       m,
		MaxQueryBytes: config.Default().Server.MaxQueryBytes,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("POST /api/search", s.handleSearch)
	s.Router.HandleFunc("GET /{$}", s.staticFile("static/index.html", "text/html; charset=utf-8"))
	s.Router.HandleFunc("GET /index.html", s.staticFile("static/index.html", "text/html; charset=utf-8"))
	s.Router.HandleFunc("GET /index.js", s.staticFile("static/index.js", "text/javascript; charset=utf-8"))
	s.Router.HandleFunc("/", s.handleNotFound)
}

// Handler returns the router wrapped with request logging and, when
// configured, request metrics.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router
	if s.Metrics != nil {
		h = s.Metrics.Middleware(h)
	}
	return s.logRequests(h)
}

// Start serves HTTP on cfg.Address until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, cfg config.ServerConfig) error {
	if cfg.MaxQueryBytes > 0 {
		s.MaxQueryBytes = cfg.MaxQueryBytes
	}

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Infof("Starting API Server on %s", cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down API Server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handlers

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxQueryBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "query too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.Logger.WithError(err).Error("Could not read search request body")
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	results := s.Searcher.Search(string(body))
	if s.Metrics != nil {
		s.Metrics.ObserveSearch(time.Since(start), len(results))
	}

	s.Logger.WithFields(logrus.Fields{
		"query":   string(body),
		"results": len(results),
	}).Debug("Search complete")

	jsonResponse(w, http.StatusOK, results)
}

func (s *Server) staticFile(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := staticFiles.ReadFile(name)
		if err != nil {
			s.Logger.WithError(err).WithField("file", name).Error("Unable to open static file")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("404"))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Logger.WithFields(logrus.Fields{
			"method": r.Method,
			"url":    r.URL.String(),
		}).Info("Received request")
		next.ServeHTTP(w, r)
	})
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "could not encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
