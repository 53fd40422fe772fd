package timeline

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/karte-api/internal/handler"
	"github.com/jwalitptl/karte-api/internal/service/timeline"
	"github.com/jwalitptl/karte-api/pkg/httputil"
)

// MaxLimit is the largest page size a client may request.
const MaxLimit = 100

type Handler struct {
	service      timeline.TimelineService
	defaultLimit int
}

// NewHandler serves timeline pages; requests without a limit get
// defaultLimit entries.
func NewHandler(service timeline.TimelineService, defaultLimit int) *Handler {
	if defaultLimit <= 0 || defaultLimit > MaxLimit {
		defaultLimit = 20
	}
	return &Handler{service: service, defaultLimit: defaultLimit}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/timeline", h.FetchTimeline)
}

type fetchQuery struct {
	Offset int    `form:"offset" binding:"min=0"`
	Limit  *int   `form:"limit" binding:"omitempty,min=1,max=100"`
	Q      string `form:"q" binding:"max=200"`
}

func (h *Handler) FetchTimeline(c *gin.Context) {
	patientID, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var q fetchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.BindError(c, err)
		return
	}

	limit := h.defaultLimit
	if q.Limit != nil {
		limit = *q.Limit
	}

	page, err := h.service.Fetch(c.Request.Context(), patientID, q.Offset, limit, q.Q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, page)
}
