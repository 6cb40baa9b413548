package handlers

import (
	"net/http"
	"time"

	"github.com/elostora/shop/internal/events"
	"github.com/elostora/shop/internal/http/api"
	"github.com/gin-gonic/gin"
)

// EventHandler manages promotional events.
type EventHandler struct {
	svc *api.Services
	now func() time.Time
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *api.Services) *EventHandler {
	return &EventHandler{svc: svc, now: time.Now}
}

// Create stores an event.
func (h *EventHandler) Create(c *gin.Context) {
	var body events.Input
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	event, errCreate := h.svc.Events.Create(c.Request.Context(), body)
	if errCreate != nil {
		api.RespondError(c, errCreate, "create event failed")
		return
	}
	c.JSON(http.StatusCreated, api.FormatEvent(event, h.now().UTC()))
}

// List returns all events.
func (h *EventHandler) List(c *gin.Context) {
	list, errList := h.svc.Events.List(c.Request.Context(), c.Query("active") == "true")
	if errList != nil {
		api.RespondError(c, errList, "list events failed")
		return
	}
	now := h.now().UTC()
	out := make([]gin.H, 0, len(list))
	for _, event := range list {
		out = append(out, api.FormatEvent(event, now))
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

// Get returns an event by id or uid.
func (h *EventHandler) Get(c *gin.Context) {
	event, errGet := h.svc.Events.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		api.RespondError(c, errGet, "load event failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatEvent(event, h.now().UTC()))
}

// Update replaces the writable fields of an event.
func (h *EventHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body events.Input
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	event, errUpdate := h.svc.Events.Update(c.Request.Context(), id, body)
	if errUpdate != nil {
		api.RespondError(c, errUpdate, "update event failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatEvent(event, h.now().UTC()))
}

// Delete removes an event.
func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.Events.Delete(c.Request.Context(), id); errDelete != nil {
		api.RespondError(c, errDelete, "delete event failed")
		return
	}
	c.Status(http.StatusNoContent)
}
