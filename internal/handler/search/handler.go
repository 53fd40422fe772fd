package search

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/karte-api/internal/handler"
	"github.com/jwalitptl/karte-api/internal/service/search"
	"github.com/jwalitptl/karte-api/pkg/httputil"
)

type Handler struct {
	service search.SearchService
}

func NewHandler(service search.SearchService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/search", h.SearchGlobal)
}

type searchQuery struct {
	Q string `form:"q" binding:"max=200"`
}

// SearchGlobal never rejects a short query; it answers with an empty list.
func (h *Handler) SearchGlobal(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.BindError(c, err)
		return
	}

	results, err := h.service.Search(c.Request.Context(), q.Q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, results)
}
