// Package server exposes the translation pipeline over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/valpere/codetran/internal/config"
	"github.com/valpere/codetran/internal/logging"
	"github.com/valpere/codetran/internal/ratelimit"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	cfg    config.ServerConfig
	engine *gin.Engine
}

// New builds the router. limiter may be nil to disable rate limiting.
func New(cfg config.ServerConfig, tr Translator, limiter *ratelimit.Limiter) *Server {
	engine := gin.New()
	// Only configured proxies may set the client IP the limiter keys on.
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}
	engine.Use(
		logging.GinLogrusRecovery(),
		logging.GinLogrusLogger(),
		corsAllowAll(),
		secureHeaders(),
	)

	engine.GET("/healthz", healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := []gin.HandlerFunc{bodyLimit(cfg.MaxBodyBytes)}
	if limiter != nil {
		public = append(public, limiter.Middleware())
	}

	api := engine.Group("/", public...)
	api.POST("/translate-code", translateHandler(tr))

	engine.NoRoute(append(public, spaFallback(cfg.StaticDir))...)

	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.WithField("port", s.cfg.Port).Infof("Server running on port %d", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown timeout, forcing stop")
			return srv.Close()
		}
		log.Info("server stopped gracefully")
		return nil
	}
}
