package reviews

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"estante/common"
	"estante/identity"
	"estante/models"
)

// ReviewView is the public shape of a review, with the book inlined and the
// markdown body rendered.
type ReviewView struct {
	ID          uint        `json:"id"`
	UserID      uint        `json:"user_id"`
	Rating      int         `json:"rating"`
	Content     *string     `json:"content"`
	ContentHTML string      `json:"content_html"`
	CreatedAt   time.Time   `json:"created_at"`
	Book        models.Book `json:"book"`
}

func View(r *models.Review) ReviewView {
	view := ReviewView{
		ID:        r.ID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		Book:      r.Book,
	}
	if r.Content != nil {
		view.ContentHTML = renderMarkdown(*r.Content)
	}
	return view
}

func Views(reviews []models.Review) []ReviewView {
	views := make([]ReviewView, 0, len(reviews))
	for i := range reviews {
		views = append(views, View(&reviews[i]))
	}
	return views
}

func (m *ReviewsModule) RegisterRoutes(router gin.IRouter, requireAuth gin.HandlerFunc) {
	reviewsGroup := router.Group("/reviews")
	{
		reviewsGroup.GET("/feed", m.feed)
		reviewsGroup.GET("/book/:id", m.listByBook)
		reviewsGroup.GET("/:id", m.getReview)

		reviewsGroup.POST("", requireAuth, m.createReview)
		reviewsGroup.PATCH("/:id", requireAuth, m.editReview)
		reviewsGroup.DELETE("/:id", requireAuth, m.deleteReview)
	}

	router.GET("/users/me/reviews", requireAuth, m.myReviews)
}

func (m *ReviewsModule) createReview(c *gin.Context) {
	var request struct {
		BookID  string  `json:"book_id"`
		Content *string `json:"content"`
		Rating  int     `json:"rating"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		common.RespondError(c, m.log, common.Invalid("invalid request body"))
		return
	}

	review, err := m.Create(c.Request.Context(), identity.CurrentUser(c), request.BookID, request.Content, request.Rating)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusCreated, View(review))
}

func (m *ReviewsModule) getReview(c *gin.Context) {
	id, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	review, err := m.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, View(review))
}

func (m *ReviewsModule) editReview(c *gin.Context) {
	id, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	var input EditInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.RespondError(c, m.log, common.Invalid("invalid request body"))
		return
	}

	review, err := m.Edit(c.Request.Context(), identity.CurrentUser(c), id, input)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, View(review))
}

func (m *ReviewsModule) deleteReview(c *gin.Context) {
	id, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	if err := m.Delete(c.Request.Context(), identity.CurrentUser(c), id); err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (m *ReviewsModule) listByBook(c *gin.Context) {
	page, err := common.PageFromQuery(c, common.DefaultPageSize)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	reviews, err := m.ListByBook(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, Views(reviews))
}

func (m *ReviewsModule) feed(c *gin.Context) {
	page, err := common.PageFromQuery(c, common.DefaultPageSize)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	reviews, err := m.FeedRecent(c.Request.Context(), page)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, Views(reviews))
}

func (m *ReviewsModule) myReviews(c *gin.Context) {
	page, err := common.PageFromQuery(c, common.DefaultPageSize)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	reviews, err := m.ListByUser(c.Request.Context(), identity.CurrentUser(c).ID, page)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, Views(reviews))
}
