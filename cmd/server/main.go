package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "flowmarket/docs"
	_ "flowmarket/internal/domain/cart"
	_ "flowmarket/internal/domain/notification"
	_ "flowmarket/internal/domain/order"
	_ "flowmarket/internal/domain/user"
	_ "flowmarket/internal/domain/workflow"
	"flowmarket/internal/pkg/config"
	"flowmarket/internal/pkg/mailer"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/internal/pkg/push"
	"flowmarket/internal/pkg/registry"
	"flowmarket/internal/pkg/uploader"
	"flowmarket/internal/pkg/worker"
	"flowmarket/pkg/cache"
	"flowmarket/pkg/database"
	"flowmarket/pkg/logger"
	"flowmarket/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title FlowMarket API
// @version 1.0
// @description Marketplace for automation workflow files (n8n, Zapier, Make, Airtable)
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. 配置与日志
	config.LoadConfig()
	logger.Init(config.GlobalConfig.App.Debug)
	defer logger.Sync()

	metrics.Init()

	// 2. 基础设施
	db := database.InitDatabase()
	rdb := database.InitRedis()
	cacheService := cache.NewRedisCache(rdb, "flowmarket:")

	smtp := mailer.NewSMTPMailer()
	mailPool := worker.NewEmailPool(smtp, 4, 256)
	mailPool.Start()

	var pushService push.PushService
	if config.GlobalConfig.Push.AccessKeyID != "" {
		svc, err := push.NewAliyunPushService()
		if err != nil {
			logger.Log.Warn("push service unavailable", zap.Error(err))
		} else {
			pushService = svc
		}
	}

	if err := uploader.InitUploader(); err != nil {
		logger.Log.Warn("oss uploader unavailable", zap.Error(err))
	}

	// 3. HTTP 引擎与全局中间件
	if !config.GlobalConfig.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.MetricsMiddleware(metrics.Default),
		middleware.RateLimitMiddleware(),
		cors.Default(),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 4. 业务模块初始化
	moduleCtx := &registry.ModuleContext{
		DB:      db,
		Redis:   rdb,
		Router:  r,
		Cache:   cacheService,
		Mailer:  smtp,
		Mail:    mailPool,
		Push:    pushService,
		Metrics: metrics.Default,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("init modules failed", zap.Error(err))
	}

	// 5. 启动与优雅退出
	srv := &http.Server{
		Addr:    ":" + config.GlobalConfig.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server shutdown failed", zap.Error(err))
	}
}
