package entry

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/karte-api/internal/handler"
	"github.com/jwalitptl/karte-api/internal/middleware"
	"github.com/jwalitptl/karte-api/internal/service/entry"
	"github.com/jwalitptl/karte-api/pkg/httputil"
)

type Handler struct {
	service entry.EntryService
}

func NewHandler(service entry.EntryService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/patients/:id/notes", h.AddNote)

	entries := r.Group("/entries")
	{
		entries.PUT("/:kind/:id", h.UpdateEntry)
		entries.DELETE("/:kind/:id", h.DeleteEntry)
	}
}

type addNoteRequest struct {
	Content     string     `json:"content" binding:"max=20000"`
	Kind        string     `json:"kind" binding:"omitempty,notekind"`
	Flags       []string   `json:"flags" binding:"omitempty,max=20,dive,required,max=50"`
	Date        *time.Time `json:"date"`
	Symptoms    string     `json:"symptoms" binding:"max=5000"`
	Treatment   string     `json:"treatment" binding:"max=5000"`
	Progress    string     `json:"progress" binding:"max=5000"`
	Attachments []string   `json:"attachments" binding:"omitempty,dive,required"`
}

type updateEntryRequest struct {
	Content string    `json:"content" binding:"max=20000"`
	Flags   *[]string `json:"flags" binding:"omitempty,max=20,dive,required,max=50"`
	Version *int      `json:"version" binding:"omitempty,min=1"`
}

func (h *Handler) AddNote(c *gin.Context) {
	patientID, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	in := entry.AddNoteInput{
		PatientID:   patientID,
		Content:     req.Content,
		Kind:        req.Kind,
		Flags:       req.Flags,
		StaffID:     middleware.StaffID(c),
		Symptoms:    req.Symptoms,
		Treatment:   req.Treatment,
		Progress:    req.Progress,
		Attachments: req.Attachments,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	created, err := h.service.AddNote(c.Request.Context(), in)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, created)
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	kind, err := handler.ParseEntryKind(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	updated, err := h.service.UpdateEntry(c.Request.Context(), entry.UpdateEntryInput{
		ID:      id,
		Kind:    kind,
		Content: req.Content,
		Flags:   req.Flags,
		Version: req.Version,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	kind, err := handler.ParseEntryKind(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.DeleteEntry(c.Request.Context(), id, kind); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "kind": kind})
}
