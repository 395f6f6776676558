package notification

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/middleware"
	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/service/preference"
	apperrors "github.com/jwalitptl/uhcare-api/pkg/errors"
	"github.com/jwalitptl/uhcare-api/pkg/httputil"
)

// Inbox is the part of the notification service the handler serves.
type Inbox interface {
	List(ctx context.Context, userID uuid.UUID, filter model.InboxFilter, p model.Pagination) ([]*model.Notification, error)
	Recent(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type Handler struct {
	inbox Inbox
	prefs preference.Service
}

func NewHandler(inbox Inbox, prefs preference.Service) *Handler {
	return &Handler{inbox: inbox, prefs: prefs}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/notifications")
	{
		g.GET("", h.List)
		g.GET("/recent", h.Recent)
		g.GET("/unread-count", h.UnreadCount)
		g.POST("/read-all", h.MarkAllRead)
		g.POST("/:id/read", h.MarkRead)
		g.DELETE("/:id", h.Delete)
		g.GET("/preferences", h.GetPreferences)
		g.PUT("/preferences", h.UpdatePreferences)
	}
}

type ListQuery struct {
	Filter string `form:"filter"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperrors.BadRequest("invalid query parameters", err))
		return
	}

	p := model.Pagination{Limit: q.Limit, Offset: q.Offset}.Normalize()
	list, err := h.inbox.List(c.Request.Context(), actor.UserID, model.ParseInboxFilter(q.Filter), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithPagination(c, list, p.Limit, p.Offset, len(list))
}

func (h *Handler) Recent(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	list, err := h.inbox.Recent(c.Request.Context(), actor.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	count, err := h.inbox.UnreadCount(c.Request.Context(), actor.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"count": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}
	n, err := h.inbox.MarkRead(c.Request.Context(), actor.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, n)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	count, err := h.inbox.MarkAllRead(c.Request.Context(), actor.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"updated": count})
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}
	if err := h.inbox.Delete(c.Request.Context(), actor.UserID, id); err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	prefs, err := h.prefs.Get(c.Request.Context(), actor.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prefs)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req preference.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	prefs, err := h.prefs.Update(c.Request.Context(), actor.UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prefs)
}

func (h *Handler) actor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return model.Actor{}, false
	}
	return actor, true
}

func (h *Handler) id(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.fail(c, apperrors.BadRequest("invalid notification ID", err))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	httputil.RespondWithError(c, err)
}
