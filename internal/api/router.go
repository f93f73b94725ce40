// Package api exposes the quoting service over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cotizador/internal/common/logger"
	"cotizador/internal/models"
	"cotizador/internal/service"
)

// AccessHeader carries the optional access code on admin routes.
const AccessHeader = "X-Access-Code"

// QuoteService is the part of service.Service the API needs.
type QuoteService interface {
	Quote(ctx context.Context, req service.QuoteRequest) (*service.QuoteResponse, error)
	Proposal(ctx context.Context, req service.ProposalRequest) (*service.ProposalResult, error)
	Clinics(ctx context.Context, query string, limit int) ([]string, error)
	Options() service.Options
	Campaigns(ctx context.Context, accessCode, month string, clientType models.ClientType) (*service.CampaignsResult, error)
	ReloadCatalog(ctx context.Context, accessCode string) (*service.ReloadResult, error)
}

// ReadyFunc reports whether dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Ready          ReadyFunc
}

// NewRouter builds the HTTP router.
func NewRouter(svc QuoteService, opts RouterOptions, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	log = log.WithFields(map[string]interface{}{"component": "api"})

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", AccessHeader},
		ExposeHeaders: []string{"Content-Disposition", "X-Folio"},
		MaxAge:        12 * time.Hour,
	}))
	if opts.RequestTimeout > 0 {
		router.Use(requestTimeout(opts.RequestTimeout))
	}

	h := &handler{svc: svc, ready: opts.Ready, log: log}

	router.GET("/health", h.health)
	router.GET("/ready", h.readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/catalog/clinics", h.clinics)
	v1.GET("/catalog/options", h.options)
	v1.POST("/catalog/reload", h.reloadCatalog)
	v1.GET("/campaigns", h.campaigns)
	v1.POST("/quotes", h.quote)
	v1.POST("/quotes/:id/proposal", h.proposal)

	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= 500 {
			log.Error("Request failed", fields)
			return
		}
		log.Debug("Request served", fields)
	}
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
