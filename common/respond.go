package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RespondError writes err as a JSON body with the status matching its kind.
// Every 5xx is logged. Unclassified errors are reported as a generic 500.
func RespondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	kind := KindOf(err)
	status := kind.HTTPStatus()

	message := err.Error()
	if status >= http.StatusInternalServerError {
		entry := logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": status,
		}).WithError(err)

		if kind == KindInternal {
			entry.Error("request failed")
			message = "internal server error"
		} else {
			entry.Warn("request failed")
		}
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":   CodeOf(err),
		"message": message,
	})
}
