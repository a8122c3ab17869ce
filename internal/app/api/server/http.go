package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/packledger/docs"
	"github.com/fatflowers/packledger/internal/app/api/handlers"
	mw "github.com/fatflowers/packledger/internal/app/api/middleware"
	"github.com/fatflowers/packledger/internal/app/service/assignment"
	"github.com/fatflowers/packledger/internal/app/service/checkin"
	"github.com/fatflowers/packledger/internal/app/service/statistics"
	"github.com/fatflowers/packledger/internal/platform/catalog"
	cfgpkg "github.com/fatflowers/packledger/pkg/config"
	metrics "github.com/fatflowers/packledger/pkg/metrics"
)

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg != nil && cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log         *zap.SugaredLogger
	Config      *cfgpkg.Config
	Catalog     catalog.Catalog
	Assignments assignment.AssignmentManager
	CheckIns    checkin.CheckInManager
	Statistics  *statistics.Service
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	log := d.Log
	// Prometheus metrics
	if d.Config != nil && d.Config.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{Logger: log})
		p.SetListenAddress(d.Config.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", d.Config.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))

	handlers.RegisterCatalogRoutes(apiV1, d.Catalog)
	assignments := apiV1.Group("/assignments")
	handlers.RegisterAssignmentRoutes(assignments, d.Assignments)
	handlers.RegisterCheckInRoutes(assignments, d.Assignments, d.CheckIns)

	handlers.RegisterAdminRoutes(apiV1.Group("/admin"), d.CheckIns, d.Statistics)
}

func runServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
