package handler

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"parlour/internal/apperr"
)

func ok(c *gin.Context, status int, body gin.H) {
	body["success"] = true
	c.JSON(status, body)
}

// fail writes the error envelope. Internal causes are logged, never returned.
func fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		slog.Error("request failed", "method", c.Request.Method, "route", c.FullPath(), "err", err)
	}
	if d := apperr.RetryAfter(err); d > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
	}
	c.AbortWithStatusJSON(apperr.Status(err), gin.H{"success": false, "message": apperr.Message(err)})
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return false
	}
	return true
}
