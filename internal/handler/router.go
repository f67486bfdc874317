package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/markport/internal/middleware"
)

type RouterDeps struct {
	Imports         *ImportHandler
	Bulk            *BulkHandler
	Sessions        *SessionHandler
	Metrics         http.Handler
	JWTSecret       []byte
	UploadRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/import", middleware.RateLimit(deps.UploadRateLimit), deps.Imports.Upload)
	authGroup.POST("/import/:job_id/process", deps.Imports.Process)
	authGroup.GET("/import/:job_id", deps.Imports.Status)

	if deps.Bulk != nil {
		authGroup.POST("/bookmarks/bulk/delete", deps.Bulk.Delete)
		authGroup.POST("/bookmarks/bulk/tags", deps.Bulk.Tags)
	}
	if deps.Sessions != nil {
		authGroup.PUT("/session", deps.Sessions.Put)
		authGroup.DELETE("/session", deps.Sessions.Delete)
	}
}
