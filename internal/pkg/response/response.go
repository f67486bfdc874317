package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success writes a 200 response. The payload fields are merged next to
// "success": true so clients read counters from the top level.
func Success(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func Error(c *gin.Context, status int, code string, message string) {
	ErrorWith(c, status, code, message, nil)
}

func ErrorWith(c *gin.Context, status int, code string, message string, extra gin.H) {
	body := gin.H{
		"success": false,
		"code":    code,
		"error":   message,
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
