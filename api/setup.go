package api

import (
	_ "forrflow/api/docs"
	"forrflow/internal/config"
	"forrflow/internal/metrics"
	middlewarepkg "forrflow/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置并返回 Gin 路由
func SetupRouter(container *AppContainer) *gin.Engine {
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(middlewarepkg.RequestIDMiddleware())
	router.Use(RequestLogger())
	router.Use(CORS())

	// Prometheus 指标收集中间件
	router.Use(metrics.PrometheusMiddleware())

	// 公开端点
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(container.DB))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if container.RateLimiter == nil {
		container.RateLimiter = middlewarepkg.NewRateLimiter(rateLimiterConfig(container.Config))
	}
	RegisterRoutes(router, container.InitHandlers(), middlewarepkg.RateLimitByEndpoint(container.RateLimiter))
	return router
}

// rateLimiterConfig 预览接口需要完整展开参数组合，单独限流
func rateLimiterConfig(cfg *config.Config) *middlewarepkg.RateLimiterConfig {
	rlCfg := middlewarepkg.DefaultRateLimiterConfig()
	if cfg == nil {
		return rlCfg
	}
	if cfg.Server.RateLimitRPS > 0 {
		rlCfg.RequestsPerSecond = cfg.Server.RateLimitRPS
	}
	if cfg.Server.RateLimitBurst > 0 {
		rlCfg.BurstSize = cfg.Server.RateLimitBurst
	}
	return rlCfg
}
