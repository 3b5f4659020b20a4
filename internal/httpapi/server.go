// Package httpapi serves the action-dispatched JSON endpoint that remote
// sessions call: one path, the operation picked by ?action=.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oggyb/rotrade-sync/internal/api"
	"github.com/oggyb/rotrade-sync/internal/config"
)

// EndpointPath is where the action endpoint is mounted.
const EndpointPath = "/api"

type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	log        *slog.Logger
}

// NewRouter builds the gin engine: request logging, recovery, permissive
// CORS, the maintenance switch and the endpoint itself.
func NewRouter(cfg *config.Config, a api.API, log *slog.Logger) *gin.Engine {
	if cfg.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(RequestLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", RequestIDHeader}
	corsConfig.MaxAge = 24 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	endpoint := router.Group("", Maintenance(cfg.HTTP.Maintenance))
	h := NewHandler(a)
	h.RegisterRoutes(endpoint, EndpointPath)
	h.RegisterRoutes(endpoint, "/")

	return router
}

func NewServer(cfg *config.Config, a api.API, log *slog.Logger) *Server {
	router := NewRouter(cfg, a, log)
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		router: router,
		log:    log,
	}
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info("HTTP server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("HTTP server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }
