package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/endpoints/auth"
	"github.com/kbukum/endpoints/logger"
	"github.com/kbukum/endpoints/server/endpoint"
	"github.com/kbukum/endpoints/server/middleware"
)

const (
	maxConcurrentStreams = 250
	maxShutdownWait      = 5 * time.Second
)

// Server is the HTTP front: a Gin engine wrapped in net/http middleware and
// served over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	engine      *gin.Engine
	httpServer  *http.Server
	middlewares []middleware.Middleware
	config      Config
	log         *logger.Logger

	mu       sync.RWMutex
	listener net.Listener
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// New builds a server with no middleware. Gin runs in debug mode only when
// the global log level is debug.
func New(cfg Config, log *logger.Logger) *Server {
	mode := gin.ReleaseMode
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(noRoute)
	engine.NoMethod(noMethod)

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			ReadTimeout:  seconds(cfg.ReadTimeout),
			WriteTimeout: seconds(cfg.WriteTimeout),
			IdleTimeout:  seconds(cfg.IdleTimeout),
		},
		config: cfg,
		log:    log.WithComponent("server"),
	}
}

// GinEngine exposes the engine for route registration.
func (s *Server) GinEngine() *gin.Engine { return s.engine }

// Use appends middleware; the first added is the outermost.
func (s *Server) Use(mws ...middleware.Middleware) {
	s.middlewares = append(s.middlewares, mws...)
}

// Handler is the engine behind every middleware, accepting h2c.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(middleware.Chain(s.middlewares...)(s.engine), &http2.Server{
		MaxConcurrentStreams: maxConcurrentStreams,
		IdleTimeout:          seconds(s.config.IdleTimeout),
	})
}

// Start binds the listener and serves in the background. A bind failure is
// returned; later serve errors are logged.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.httpServer.Handler = s.Handler()
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	s.log.Info("http server listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop drains in-flight requests until ctx ends or maxShutdownWait passes.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, maxShutdownWait)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Running reports whether the listener is bound.
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listener != nil
}

// ApplyMiddleware appends the standard stack in order: recovery, request
// id, access log, CORS, bearer auth when verifier is set, per-caller rate
// limit when enabled, then the request deadline and body size limit.
func (s *Server) ApplyMiddleware(verifier auth.Verifier, skipAuth ...string) {
	s.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.RequestLogger(s.log),
		middleware.CORS(&s.config.CORS),
	)
	if verifier != nil {
		s.Use(middleware.Auth(verifier, skipAuth...))
	}
	if s.config.RateLimit.Enabled {
		s.Use(middleware.RateLimit(s.config.RateLimit))
	}
	s.Use(
		middleware.Timeout(s.config.RequestTimeout),
		middleware.BodySizeLimit(s.config.MaxBodySize),
	)
}

// RegisterDefaultEndpoints mounts /health (GET and HEAD), /ready, /info and
// /metrics.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker, tasks []string, stats endpoint.StatsFunc) {
	health := endpoint.Health(serviceName, checker)
	s.engine.GET("/health", health)
	s.engine.HEAD("/health", health)
	s.engine.GET("/ready", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/info", endpoint.Info(serviceName, tasks))
	s.engine.GET("/metrics", endpoint.Metrics(stats))
}
