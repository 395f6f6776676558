package order

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/middleware"
	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
	"github.com/jwalitptl/uhcare-api/internal/service/order"
	apperrors "github.com/jwalitptl/uhcare-api/pkg/errors"
	"github.com/jwalitptl/uhcare-api/pkg/httputil"
)

// Config describes how one entity kind is exposed over HTTP.
type Config[E model.Entity] struct {
	// Path is the route prefix, e.g. "/pharmacy/orders".
	Path string
	New  func() E
	// Defaults fills fields the create request left out. present holds the request's top-level keys.
	Defaults func(e E, present map[string]bool)
	// Protected lists request keys customers may not set. "items[].unit_price"
	// names a key inside each element of the items array.
	Protected []string
	// Placement lists keys customers may set when placing but not when amending.
	Placement []string
}

type Handler[E model.Entity] struct {
	cfg Config[E]
	svc *order.Service[E]
}

func NewHandler[E model.Entity](cfg Config[E], svc *order.Service[E]) *Handler[E] {
	return &Handler[E]{cfg: cfg, svc: svc}
}

func (h *Handler[E]) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group(h.cfg.Path)
	{
		g.POST("", h.Create)
		g.GET("", h.ListMine)
		g.GET("/:id", h.Get)
		g.PATCH("/:id", h.Amend)
		g.POST("/:id/status", h.Transition)
		g.GET("/:id/activities", h.Activities)
	}
}

// RegisterAdminRoutes mounts the same operations under an admin-only group.
// Amendments made through it may change locked fields.
func (h *Handler[E]) RegisterAdminRoutes(r *gin.RouterGroup) {
	g := r.Group(h.cfg.Path)
	{
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.PATCH("/:id", h.Amend)
		g.POST("/:id/status", h.Transition)
		g.GET("/:id/activities", h.Activities)
	}
}

type TransitionRequest struct {
	Status model.Status `json:"status" binding:"required"`
	Reason string       `json:"reason"`
}

type ListQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

func (h *Handler[E]) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	body, present, err := h.readBody(c, actor, h.cfg.Protected)
	if err != nil {
		h.fail(c, err)
		return
	}

	e := h.cfg.New()
	if err := json.Unmarshal(body, e); err != nil {
		h.fail(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if h.cfg.Defaults != nil {
		h.cfg.Defaults(e, present)
	}

	created, err := h.svc.Create(c.Request.Context(), actor, e)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler[E]) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}

	e, err := h.svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, e)
}

func (h *Handler[E]) ListMine(c *gin.Context) {
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
	list, err := h.svc.ListForUser(c.Request.Context(), actor, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithPagination(c, list, p.Limit, p.Offset, len(list))
}

func (h *Handler[E]) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperrors.BadRequest("invalid query parameters", err))
		return
	}

	filter := repository.OrderFilter{
		Status:     model.Status(q.Status),
		Pagination: model.Pagination{Limit: q.Limit, Offset: q.Offset}.Normalize(),
	}
	list, err := h.svc.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithPagination(c, list, filter.Pagination.Limit, filter.Pagination.Offset, len(list))
}

// Amend applies a partial JSON document to the entity.
func (h *Handler[E]) Amend(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}

	body, _, err := h.readBody(c, actor, append(append([]string(nil), h.cfg.Protected...), h.cfg.Placement...))
	if err != nil {
		h.fail(c, err)
		return
	}

	e, err := h.svc.Amend(c.Request.Context(), actor, id, func(next E) error {
		if err := json.Unmarshal(body, next); err != nil {
			return apperrors.BadRequest("invalid request body", err)
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, e)
}

func (h *Handler[E]) Transition(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.BadRequest("status is required", err))
		return
	}

	e, err := h.svc.Transition(c.Request.Context(), actor, id, req.Status, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, e)
}

func (h *Handler[E]) Activities(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.id(c)
	if !ok {
		return
	}

	list, err := h.svc.Activities(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

// readBody returns the raw JSON object and its top-level keys. Customers may
// not set any of the protected keys.
func (h *Handler[E]) readBody(c *gin.Context, actor model.Actor, protected []string) ([]byte, map[string]bool, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, nil, apperrors.BadRequest("failed to read request body", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, nil, apperrors.BadRequest("request body must be a JSON object", err)
	}

	present := make(map[string]bool, len(fields))
	for k := range fields {
		present[k] = true
	}

	if actor.Role == model.RoleCustomer {
		var denied []apperrors.FieldError
		for _, k := range protected {
			if hasKey(fields, k) {
				denied = append(denied, apperrors.FieldError{Field: k, Message: "cannot be set by customers"})
			}
		}
		if len(denied) > 0 {
			return nil, nil, apperrors.Validation(denied...)
		}
	}
	return body, present, nil
}

// hasKey reports whether fields holds key. "parent[].child" matches when any
// element of the parent array holds child.
func hasKey(fields map[string]json.RawMessage, key string) bool {
	parent, child, nested := strings.Cut(key, "[].")
	if !nested {
		_, ok := fields[key]
		return ok
	}
	raw, ok := fields[parent]
	if !ok {
		return false
	}
	var elems []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return false
	}
	for _, el := range elems {
		if _, ok := el[child]; ok {
			return true
		}
	}
	return false
}

func (h *Handler[E]) actor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return model.Actor{}, false
	}
	return actor, true
}

func (h *Handler[E]) id(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.fail(c, apperrors.BadRequest(fmt.Sprintf("invalid %s ID", h.svc.Policy().Noun), err))
		return uuid.Nil, false
	}
	return id, true
}

// fail writes err and attaches it to the context for the error logger.
func (h *Handler[E]) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	httputil.RespondWithError(c, err)
}
