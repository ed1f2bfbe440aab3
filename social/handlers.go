package social

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estante/common"
	"estante/identity"
	"estante/models"
	"estante/reviews"
)

func (m *SocialModule) RegisterRoutes(router gin.IRouter, requireAuth gin.HandlerFunc) {
	follows := router.Group("/follows")
	follows.Use(requireAuth)
	{
		follows.POST("/:id", m.follow)
		follows.DELETE("/:id", m.unfollow)
		follows.GET("/me/status/:id", m.status)
		follows.GET("/me/following", m.following)
		follows.GET("/me/followers", m.followers)
		follows.GET("/me/feed", m.feed)
	}
}

func publicViews(users []models.User) []identity.UserPublic {
	views := make([]identity.UserPublic, 0, len(users))
	for i := range users {
		views = append(views, identity.PublicView(&users[i]))
	}
	return views
}

func (m *SocialModule) follow(c *gin.Context) {
	targetID, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	if err := m.Follow(c.Request.Context(), identity.CurrentUser(c), targetID); err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"following": true})
}

func (m *SocialModule) unfollow(c *gin.Context) {
	targetID, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	if err := m.Unfollow(c.Request.Context(), identity.CurrentUser(c), targetID); err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (m *SocialModule) status(c *gin.Context) {
	targetID, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	following, err := m.FollowStatus(c.Request.Context(), identity.CurrentUser(c), targetID)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"following": following})
}

func (m *SocialModule) following(c *gin.Context) {
	page, err := common.PageFromQuery(c, common.DefaultPageSize)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	users, err := m.ListFollowing(c.Request.Context(), identity.CurrentUser(c), page)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, publicViews(users))
}

func (m *SocialModule) followers(c *gin.Context) {
	page, err := common.PageFromQuery(c, common.DefaultPageSize)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	users, err := m.ListFollowers(c.Request.Context(), identity.CurrentUser(c), page)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, publicViews(users))
}

func (m *SocialModule) feed(c *gin.Context) {
	page, err := common.PageFromQuery(c, common.DefaultPageSize)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	feed, err := m.FeedForFollowing(c.Request.Context(), identity.CurrentUser(c), page)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, reviews.Views(feed))
}
