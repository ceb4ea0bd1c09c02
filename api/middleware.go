package api

import (
	"net/http"
	"strings"
	"time"

	"forrflow/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger 请求日志中间件
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.WithContext(c.Request.Context(), nil).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsAllowedMethods 与 routes.go 注册的路由保持一致
var corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}

// corsExposedHeaders 前端可读取的响应头，用于按 trace id 关联 worker 日志
var corsExposedHeaders = []string{"X-Request-ID", "X-Trace-ID"}

// CORS 跨域中间件。CORS_ALLOW_ORIGINS 为空时允许任意来源但不携带凭证，
// 配置后只回显白名单内的 Origin
func CORS() gin.HandlerFunc {
	allowedOrigins := getEnvList("CORS_ALLOW_ORIGINS")
	methods := strings.Join(corsAllowedMethods, ", ")
	headers := strings.Join(append([]string{"Content-Type", "Accept"}, corsExposedHeaders...), ", ")
	exposed := strings.Join(corsExposedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		switch {
		case len(allowedOrigins) == 0:
			h.Set("Access-Control-Allow-Origin", "*")
		case stringInSlice(origin, allowedOrigins):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		default:
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}
		h.Set("Access-Control-Expose-Headers", exposed)

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
