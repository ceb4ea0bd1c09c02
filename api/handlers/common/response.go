package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success 返回 200 与统一成功结构
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// Fail 返回指定状态码与统一错误结构
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Success: false, Code: code, Message: message})
}
