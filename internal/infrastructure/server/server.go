package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	apihttp "github.com/GriffinCanCode/PortableShelf/internal/api/http"
	"github.com/GriffinCanCode/PortableShelf/internal/api/middleware"
	"github.com/GriffinCanCode/PortableShelf/internal/api/ws"
	"github.com/GriffinCanCode/PortableShelf/internal/domain/app"
	"github.com/GriffinCanCode/PortableShelf/internal/domain/launcher"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/config"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/monitoring"
)

const (
	shutdownTimeout = 5 * time.Second
	maxConnections  = 256
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router      *gin.Engine
	handler     http.Handler
	service     *app.Local
	handlers    *apihttp.Handlers
	hub         *ws.Hub
	logger      *logging.Logger
	config      *config.Config
	metrics     *monitoring.Metrics
	unsubscribe func()
}

// Option customizes NewServer.
type Option func(*options)

type options struct {
	spawner launcher.Spawner
	metrics *monitoring.Metrics
}

// WithSpawner replaces the process spawner.
func WithSpawner(sp launcher.Spawner) Option {
	return func(o *options) { o.spawner = sp }
}

// WithMetrics supplies the metrics collector instead of creating one.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewServer builds the local service, runs its startup scan and wires the
// router. A nil logger is derived from cfg.Logging.
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if logger == nil {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing shelf daemon",
		zap.String("addr", cfg.Addr()),
		zap.String("apps_dir", cfg.Library.AppsDir),
		zap.String("store", cfg.Library.StorePath),
	)

	metrics := o.metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	service, err := app.NewLocal(cfg, o.spawner, logger, metrics)
	if err != nil {
		return nil, err
	}
	if err := service.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	hub := ws.NewHub(logger, metrics, nil)
	unsubscribe := service.Registry().Subscribe(hub.Publish)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(service, logger)
	handlers.Register(router)

	router.GET("/stream", hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized",
		zap.String("instance_id", handlers.InstanceID()),
		zap.Int("apps", service.Registry().Len()),
	)

	return &Server{
		router:      router,
		handler:     compress(router),
		service:     service,
		handlers:    handlers,
		hub:         hub,
		logger:      logger,
		config:      cfg,
		metrics:     metrics,
		unsubscribe: unsubscribe,
	}, nil
}

// Handler returns the root HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// compress gzips API responses. The stream endpoint is excluded because the
// WebSocket upgrade needs the raw connection.
func compress(router *gin.Engine) http.Handler {
	gz := gzhttp.GzipHandler(router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stream" {
			router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Service returns the in-process app service.
func (s *Server) Service() *app.Local {
	return s.service
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	ln = netutil.LimitListener(ln, maxConnections)

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	// Hijacked stream connections are not tracked by Shutdown.
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errCh
}

// Close detaches the stream hub and flushes logs.
func (s *Server) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.hub.Close()
	_ = s.logger.Sync()
	return nil
}
