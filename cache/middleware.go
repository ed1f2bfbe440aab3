package cache

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
)

// responseWriter holds the body back until the handler is done so the ETag
// can be computed over it.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// ETag tags successful GET responses with a hash of their body and answers
// 304 Not Modified when the client already holds that version.
func ETag() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		c.Writer = writer.ResponseWriter
		body := writer.body.Bytes()

		if c.Writer.Status() != http.StatusOK {
			if len(body) > 0 {
				c.Writer.Write(body)
			}
			return
		}

		tag := generateTag(body)
		c.Header("ETag", tag)

		if matches(c.GetHeader("If-None-Match"), tag) {
			c.Writer.Header().Del("Content-Type")
			c.Writer.Header().Del("Content-Length")
			c.Writer.WriteHeader(http.StatusNotModified)
			c.Writer.WriteHeaderNow()
			return
		}

		c.Writer.Write(body)
	}
}

func generateTag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
}

// matches reports whether an If-None-Match header names tag.
func matches(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == tag {
			return true
		}
	}
	return false
}
