package social

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"estante/identity"
	"estante/models"
	"estante/reviews"
)

// fakeAuth authenticates the user named in the X-User header.
func fakeAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := db.First(&user, "name = ?", c.GetHeader("X-User")).Error; err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		identity.SetCurrentUser(c, &user)
		c.Next()
	}
}

func do(router *gin.Engine, method, path, user string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSocialHandlers(t *testing.T) {
	m, db := setupModule(t)
	ana := createTestUser(t, db, "ana")
	bob := createTestUser(t, db, "bob")
	review := createTestReview(t, db, bob.ID, "OL1W")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	m.RegisterRoutes(router, fakeAuth(db))

	w := do(router, "POST", fmt.Sprintf("/follows/%d", bob.ID), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, "POST", fmt.Sprintf("/follows/%d", ana.ID), "ana")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "self_follow_not_allowed")

	w = do(router, "POST", fmt.Sprintf("/follows/%d", bob.ID), "ana")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"following":true}`, w.Body.String())

	w = do(router, "GET", fmt.Sprintf("/follows/me/status/%d", bob.ID), "ana")
	assert.JSONEq(t, `{"following":true}`, w.Body.String())

	w = do(router, "GET", "/follows/me/following", "ana")
	require.Equal(t, http.StatusOK, w.Code)
	var following []identity.UserPublic
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &following))
	require.Len(t, following, 1)
	assert.Equal(t, bob.ID, following[0].ID)
	assert.NotContains(t, w.Body.String(), "email")

	w = do(router, "GET", "/follows/me/followers", "bob")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"ana"`)

	w = do(router, "GET", "/follows/me/feed", "ana")
	require.Equal(t, http.StatusOK, w.Code)
	var feed []reviews.ReviewView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, review.ID, feed[0].ID)

	w = do(router, "DELETE", fmt.Sprintf("/follows/%d", bob.ID), "ana")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, "GET", fmt.Sprintf("/follows/me/status/%d", bob.ID), "ana")
	assert.JSONEq(t, `{"following":false}`, w.Body.String())
}
