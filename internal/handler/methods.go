package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RejectMethod answers 405 with an empty body.
func RejectMethod(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.Status(http.StatusMethodNotAllowed)
	c.Writer.WriteHeaderNow()
}

// RejectMethodText answers 405 with a plain-text body naming the method.
func RejectMethodText(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.String(http.StatusMethodNotAllowed, "Method %s Not Allowed", c.Request.Method)
}
