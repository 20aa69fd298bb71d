package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/http/response"
	"github.com/yungbote/facility-backend/internal/platform/ctxutil"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

const opHTTP = "aggregate.http"

// AggregateHandler serves the generic document API for every registered type.
// Routes are bound per type, so each method returns the handler for one type.
type AggregateHandler struct {
	log  *logger.Logger
	repo aggregates.Repository
}

func NewAggregateHandler(log *logger.Logger, repo aggregates.Repository) *AggregateHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AggregateHandler{
		log:  log.With("handler", "AggregateHandler"),
		repo: repo,
	}
}

// POST /api/<type>
func (h *AggregateHandler) Create(t *aggregates.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := h.payload(c, t)
		if !ok {
			return
		}
		doc, err := h.repo.Create(c.Request.Context(), t.Name, tenant(c), p)
		if err != nil {
			h.fail(c, "Create", t, err)
			return
		}
		response.RespondCreated(c, doc)
	}
}

// GET /api/<type>?skip=&limit=&<filter>=
func (h *AggregateHandler) List(t *aggregates.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := aggregates.ListQuery{Filters: map[string]any{}}
		for key, values := range c.Request.URL.Query() {
			if len(values) == 0 {
				continue
			}
			raw := values[len(values)-1]
			switch key {
			case "skip", "limit":
				n, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil {
					response.RespondAggregateError(c, aggregates.Validationf(opHTTP, "%s must be an integer", key))
					return
				}
				if key == "skip" {
					q.Skip = n
				} else {
					q.Limit = n
				}
			default:
				q.Filters[key] = raw
			}
		}
		res, err := h.repo.List(c.Request.Context(), t.Name, tenant(c), q)
		if err != nil {
			h.fail(c, "List", t, err)
			return
		}
		response.RespondOK(c, res)
	}
}

// GET /api/<type>/:id
func (h *AggregateHandler) Get(t *aggregates.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		doc, err := h.repo.Get(c.Request.Context(), t.Name, tenant(c), id)
		if err != nil {
			h.fail(c, "Get", t, err)
			return
		}
		response.RespondOK(c, doc)
	}
}

// PATCH|PUT /api/<type>/:id
//
// Both verbs are partial: absent keys are left untouched and null clears.
func (h *AggregateHandler) Update(t *aggregates.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		p, ok := h.payload(c, t)
		if !ok {
			return
		}
		doc, err := h.repo.Update(c.Request.Context(), t.Name, tenant(c), id, p)
		if err != nil {
			h.fail(c, "Update", t, err)
			return
		}
		response.RespondOK(c, doc)
	}
}

// DELETE /api/<type>/:id
func (h *AggregateHandler) Delete(t *aggregates.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := h.repo.Delete(c.Request.Context(), t.Name, tenant(c), id); err != nil {
			h.fail(c, "Delete", t, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// POST /api/<type>/:id/resync
func (h *AggregateHandler) Resync(t *aggregates.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		doc, err := h.repo.Resync(c.Request.Context(), t.Name, tenant(c), id)
		if err != nil {
			h.fail(c, "Resync", t, err)
			return
		}
		response.RespondOK(c, doc)
	}
}

// POST /api/<type>/:id/<slot>
func (h *AggregateHandler) AddItem(t *aggregates.Type, slot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		item, ok := h.item(c, t, slot)
		if !ok {
			return
		}
		out, err := h.repo.AddItem(c.Request.Context(), t.Name, tenant(c), id, slot, item)
		if err != nil {
			h.fail(c, "AddItem", t, err)
			return
		}
		response.RespondCreated(c, out)
	}
}

// PATCH /api/<type>/:id/<slot>/:itemId
func (h *AggregateHandler) UpdateItem(t *aggregates.Type, slot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		itemID, ok := pathID(c, "itemId")
		if !ok {
			return
		}
		item, ok := h.item(c, t, slot)
		if !ok {
			return
		}
		out, err := h.repo.UpdateItem(c.Request.Context(), t.Name, tenant(c), id, slot, itemID, item)
		if err != nil {
			h.fail(c, "UpdateItem", t, err)
			return
		}
		response.RespondOK(c, out)
	}
}

// DELETE /api/<type>/:id/<slot>/:itemId
func (h *AggregateHandler) RemoveItem(t *aggregates.Type, slot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		itemID, ok := pathID(c, "itemId")
		if !ok {
			return
		}
		if err := h.repo.RemoveItem(c.Request.Context(), t.Name, tenant(c), id, slot, itemID); err != nil {
			h.fail(c, "RemoveItem", t, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *AggregateHandler) payload(c *gin.Context, t *aggregates.Type) (aggregates.Payload, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		response.RespondAggregateError(c, aggregates.Validationf(opHTTP, "read body: %v", err))
		return aggregates.Payload{}, false
	}
	p, err := aggregates.DecodePayload(t, raw)
	if err != nil {
		response.RespondAggregateError(c, err)
		return aggregates.Payload{}, false
	}
	return p, true
}

func (h *AggregateHandler) item(c *gin.Context, t *aggregates.Type, slot string) (map[string]any, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		response.RespondAggregateError(c, aggregates.Validationf(opHTTP, "read body: %v", err))
		return nil, false
	}
	item, err := aggregates.DecodeItem(t, slot, raw)
	if err != nil {
		response.RespondAggregateError(c, err)
		return nil, false
	}
	return item, true
}

func (h *AggregateHandler) fail(c *gin.Context, action string, t *aggregates.Type, err error) {
	code := aggregates.CodeOf(err)
	if code == "" || code == aggregates.CodeInternal || code == aggregates.CodeRetryable {
		h.log.Error(action+" failed", "type", t.Name, "property_id", tenant(c), "code", code, "error", err)
	}
	response.RespondAggregateError(c, err)
}

func tenant(c *gin.Context) string {
	return ctxutil.PropertyID(c.Request.Context())
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondAggregateError(c, aggregates.Validationf(opHTTP, "invalid %s %q", name, c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}
