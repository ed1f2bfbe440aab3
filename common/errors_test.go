package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("review 7: %w", ErrNotFound)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "not_found", CodeOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	assert.Equal(t, KindValidation, KindOf(Invalid("limit must be %d", 5)))
	assert.Equal(t, KindInternal, KindOf(errors.New("disk on fire")))
	assert.Equal(t, "internal_error", CodeOf(errors.New("disk on fire")))
}

func TestKind_HTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindForbidden:    http.StatusForbidden,
		KindConflict:     http.StatusConflict,
		KindUnauthorized: http.StatusUnauthorized,
		KindUpstream:     http.StatusBadGateway,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range tests {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.GET("/conflict", func(c *gin.Context) { RespondError(c, logger, ErrDuplicateReview) })
	router.GET("/boom", func(c *gin.Context) { RespondError(c, logger, errors.New("connection reset")) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/conflict", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"duplicate_review","message":"user already reviewed this book"}`, w.Body.String())
	assert.Empty(t, hook.AllEntries())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/boom", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "request failed", hook.LastEntry().Message)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRespondError_LogsUpstreamFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.GET("/books/:id", func(c *gin.Context) {
		RespondError(c, logger, fmt.Errorf("%w: search returned status 503", ErrUpstreamUnavailable))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/books/OL1W", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_unavailable")
	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "request failed", entry.Message)
	assert.Equal(t, http.StatusBadGateway, entry.Data["status"])
	assert.Equal(t, "/books/:id", entry.Data["path"])
}
