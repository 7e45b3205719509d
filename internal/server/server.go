package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/rebateplan/internal/config"
	"github.com/smallbiznis/rebateplan/internal/observability"
	obslogger "github.com/smallbiznis/rebateplan/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rebateplan/internal/observability/metrics"
	obstracing "github.com/smallbiznis/rebateplan/internal/observability/tracing"
	rebatedomain "github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(
		NewEngine,
		NewServer,
	),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the observability middleware chain.
func NewEngine(obsCfg observability.Config, m *obsmetrics.Metrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

// Server carries the HTTP dependencies.
type Server struct {
	engine  *gin.Engine
	cfg     config.Config
	log     *zap.Logger
	planSvc rebatedomain.Service
}

// ServerParams is the server dependency.
type ServerParams struct {
	fx.In

	Gin     *gin.Engine
	Cfg     config.Config
	Log     *zap.Logger
	PlanSvc rebatedomain.Service
}

// NewServer creates the HTTP server.
func NewServer(p ServerParams) *Server {
	return &Server{
		engine:  p.Gin,
		cfg:     p.Cfg,
		log:     p.Log.Named("http.server"),
		planSvc: p.PlanSvc,
	}
}

func registerRoutes(s *Server) {
	s.RegisterPlanRoutes()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
