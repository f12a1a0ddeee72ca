package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

type HealthController struct {
	rdb *redis.Client
}

func NewHealthController(rdb *redis.Client) *HealthController {
	return &HealthController{rdb: rdb}
}

func (c *HealthController) HealthCheck(ctx *gin.Context) {
	cacheStatus := "unavailable"
	if c.rdb != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := c.rdb.Ping(pingCtx).Err(); err == nil {
			cacheStatus = "ok"
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"cache":  cacheStatus,
		"time":   time.Now().Format(time.RFC3339),
	})
}
