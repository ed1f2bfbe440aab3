package books

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"estante/common"
)

func (m *BooksModule) RegisterRoutes(router gin.IRouter) {
	booksGroup := router.Group("/books")
	{
		booksGroup.GET("/search", m.search)
		booksGroup.GET("/:id", m.getBook)
	}
}

func (m *BooksModule) search(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			common.RespondError(c, m.log, common.Invalid("limit must be a positive integer"))
			return
		}
		limit = n
	}

	results, err := m.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (m *BooksModule) getBook(c *gin.Context) {
	book, err := m.GetOrFetch(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, book)
}
