package engagement

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estante/common"
	"estante/identity"
)

func (m *EngagementModule) RegisterRoutes(router gin.IRouter, requireAuth gin.HandlerFunc) {
	commentsGroup := router.Group("/comments")
	{
		commentsGroup.GET("/review/:id", m.listComments)
		commentsGroup.POST("/review/:id", requireAuth, m.addComment)
		commentsGroup.DELETE("/:id", requireAuth, m.deleteComment)
	}

	router.POST("/reviews/:id/like", requireAuth, m.toggleLike)
	router.GET("/reviews/:id/likes/count", m.countLikes)
}

func (m *EngagementModule) addComment(c *gin.Context) {
	reviewID, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	var request struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		common.RespondError(c, m.log, common.Invalid("invalid request body"))
		return
	}

	comment, err := m.AddComment(c.Request.Context(), identity.CurrentUser(c), reviewID, request.Content)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (m *EngagementModule) listComments(c *gin.Context) {
	reviewID, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	page, err := common.PageFromQuery(c, DefaultCommentPageSize)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	comments, err := m.ListComments(c.Request.Context(), reviewID, page)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

func (m *EngagementModule) deleteComment(c *gin.Context) {
	commentID, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	if err := m.DeleteComment(c.Request.Context(), identity.CurrentUser(c), commentID); err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (m *EngagementModule) toggleLike(c *gin.Context) {
	reviewID, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	liked, err := m.ToggleLike(c.Request.Context(), identity.CurrentUser(c), reviewID)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (m *EngagementModule) countLikes(c *gin.Context) {
	reviewID, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	count, err := m.CountLikes(c.Request.Context(), reviewID)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"review_id": reviewID, "likes": count})
}
