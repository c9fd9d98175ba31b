package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/inkpress/inkpress/internal/errors"
)

// ErrorHandler renders errors attached with c.Error as the standard
// envelope. Handlers never write error bodies themselves.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
}
