// Package httpapi exposes ingestion and question answering over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nextraction/internal/domain"
	"nextraction/internal/fetch"
	"nextraction/internal/service"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Nextraction Backend"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Backend is the part of the RAG service the API needs.
type Backend interface {
	Ingest(ctx context.Context, urls []string) service.IngestReport
	Answer(ctx context.Context, question string) string
	Stats() domain.IndexStats
}

// Verifier checks URL reachability.
type Verifier interface {
	Verify(ctx context.Context, urls []string) []fetch.URLStatus
}

// Server is the gin HTTP surface.
type Server struct {
	backend  Backend
	verifier Verifier
	log      *slog.Logger
	engine   *gin.Engine
}

// New builds the router.
func New(b Backend, v Verifier, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{backend: b, verifier: v, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog(), cors())
	r.GET("/", s.root)
	api := r.Group("/api")
	{
		api.POST("/ingest", s.ingest)
		api.POST("/ask", s.ask)
		api.GET("/health", s.health)
		api.GET("/stats", s.stats)
		api.POST("/verify-urls", s.verifyURLs)
	}
	s.engine = r
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Expose-Headers", RequestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
