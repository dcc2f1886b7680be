package common

import (
	"github.com/gin-gonic/gin"
)

// OK writes data as the JSON body with the given status.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// Fail writes the error body shared by every endpoint.
func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"code":  code,
		"error": msg,
	})
}
