package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/books/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/books/:id", "204"))

	req, _ := http.NewRequest("GET", "/books/OL1W", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/books/:id", "204"))
	assert.Equal(t, before+1, after)
}

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(ledgerEvents.WithLabelValues("review_created"))
	RecordEvent("review_created")
	assert.Equal(t, before+1, testutil.ToFloat64(ledgerEvents.WithLabelValues("review_created")))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	RecordAuth("login", true)

	req, _ := http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "estante_identity_auth_attempts_total")
}
