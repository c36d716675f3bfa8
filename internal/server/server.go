package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/netbill/internal/config"
	obslogger "github.com/smallbiznis/netbill/internal/observability/logger"
	obstracing "github.com/smallbiznis/netbill/internal/observability/tracing"
	"github.com/smallbiznis/netbill/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(func(s *scheduler.Scheduler) JobRunner { return s }),
	fx.Provide(NewEngine),
	fx.Invoke(run),
)

type Server struct {
	cfg  config.Config
	log  *zap.Logger
	jobs JobRunner
}

func NewEngine(cfg config.Config, log *zap.Logger, jobs JobRunner) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:  cfg,
		log:  log.Named("http"),
		jobs: jobs,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(s.log))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := r.Group("/admin", AdminTokenRequired(cfg.AdminToken))
	admin.GET("/jobs", s.ListJobs)
	admin.GET("/jobs/runs", s.ListRuns)
	admin.POST("/jobs/:job/run", s.RunJob)

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
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
