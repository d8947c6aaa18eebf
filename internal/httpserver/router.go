package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"portfolio-notify/internal/handler"
	"portfolio-notify/pkg/circuitbreaker"
	"portfolio-notify/pkg/config"
)

type connectivityChecker interface {
	IsConnected() bool
}

type breakerStater interface {
	State() circuitbreaker.State
}

// Options collects what the router serves. Limiter and Publisher are optional.
type Options struct {
	Logger  *zap.Logger
	Server  config.ServerConfig
	Contact *handler.ContactHandler
	Visit   *handler.VisitHandler
	Config  *handler.ConfigHandler
	Limiter gin.HandlerFunc
	// Publisher is checked by /readyz when visits are queued.
	Publisher connectivityChecker
	// MailBreaker state is reported by /readyz. An open breaker does not
	// fail readiness since visits are still served.
	MailBreaker breakerStater
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(opts Options) (*Router, error) {
	if !opts.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// nil trusts no proxy, so ClientIP is the peer address unless configured
	if err := r.SetTrustedProxies(opts.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	r.HandleMethodNotAllowed = true
	r.NoMethod(rejectNonPost)
	r.Use(
		TraceMiddleware(),
		ginzap.Ginzap(opts.Logger, time.RFC3339, true),
		ginzap.RecoveryWithZap(opts.Logger, true),
		MetricsMiddleware(),
	)

	if len(opts.Server.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.Server.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "X-Trace-ID"},
			ExposeHeaders: []string{"X-Trace-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", readyHandler(opts.Publisher, opts.MailBreaker))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		contact := []gin.HandlerFunc{opts.Contact.Submit}
		if opts.Limiter != nil {
			contact = append([]gin.HandlerFunc{opts.Limiter}, contact...)
		}
		api.POST("/contact", contact...)
		api.POST("/log-visit", opts.Visit.LogVisit)
		api.GET("/config", opts.Config.GetConfig)
	}

	if opts.Server.ResumePath != "" {
		resume := opts.Server.ResumePath
		r.GET("/resume", func(c *gin.Context) {
			c.File(resume)
		})
	}

	if opts.Server.StaticDir != "" {
		r.NoRoute(static.Serve("/", static.LocalFile(opts.Server.StaticDir, false)))
	}

	return &Router{Engine: r}, nil
}

// rejectNonPost runs for any verb that does not match a route on a known
// path. Paths without a 405 contract fall back to gin's default body.
func rejectNonPost(c *gin.Context) {
	switch strings.TrimSuffix(c.Request.URL.Path, "/") {
	case "/api/contact":
		handler.RejectMethod(c)
	case "/api/log-visit":
		handler.RejectMethodText(c)
	}
}

func readyHandler(pub connectivityChecker, breaker breakerStater) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pub != nil && !pub.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}
		body := gin.H{"status": "ready"}
		if breaker != nil {
			body["mail_circuit"] = breaker.State().String()
		}
		c.JSON(http.StatusOK, body)
	}
}
