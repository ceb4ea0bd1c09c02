package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, handlers *Handlers, previewLimit gin.HandlerFunc) {
	api := router.Group("/api")
	registerForrRoutes(api, handlers, previewLimit)
}

// registerForrRoutes 注册 forr 扇出任务路由
func registerForrRoutes(apiGroup *gin.RouterGroup, h *Handlers, previewLimit gin.HandlerFunc) {
	forrGroup := apiGroup.Group("/forr")
	{
		forrGroup.POST("/preview", previewLimit, h.Forr.Preview)
		forrGroup.POST("/tasks/:id/run", h.Forr.RunTask)
		forrGroup.GET("/tasks/:id/sub-instances", h.Forr.ListSubInstances)
		forrGroup.POST("/tasks/:id/kill", h.Forr.KillTask)
	}
}
