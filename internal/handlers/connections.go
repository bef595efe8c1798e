package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/queryhub/internal/services"
	"github.com/charlesng35/queryhub/pkg/errors"
	"github.com/charlesng35/queryhub/pkg/response"
)

// ConnectionHandler exposes connection APIs.
type ConnectionHandler struct {
	svc *services.ConnectionService
}

// NewConnectionHandler constructs a handler using the provided service.
func NewConnectionHandler(svc *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{svc: svc}
}

// List returns every persisted and static connection.
func (h *ConnectionHandler) List(c *gin.Context) {
	items, err := h.svc.ListAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := &response.Meta{Total: len(items)}
	for _, item := range items {
		if item.Source == services.SourceStatic {
			meta.Static++
		} else {
			meta.Persisted++
		}
	}
	response.SuccessWithMeta(c, http.StatusOK, items, meta)
}

// Get returns a single connection.
func (h *ConnectionHandler) Get(c *gin.Context) {
	item, err := h.svc.FindByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if item == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// Create registers a connection when the registry runs in managed mode.
func (h *ConnectionHandler) Create(c *gin.Context) {
	if h.svc.Mode() != services.ModeManaged {
		response.Error(c, errors.ErrMutationDisabled)
		return
	}

	input, ok := parseConnectionInput(c)
	if !ok {
		return
	}

	item, err := h.svc.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// Update replaces a persisted connection when the registry runs in managed mode.
func (h *ConnectionHandler) Update(c *gin.Context) {
	if h.svc.Mode() != services.ModeManaged {
		response.Error(c, errors.ErrMutationDisabled)
		return
	}

	input, ok := parseConnectionInput(c)
	if !ok {
		return
	}

	item, err := h.svc.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// Delete removes a persisted connection. Static connections cannot be deleted.
func (h *ConnectionHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	removed, err := h.svc.RemoveByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if removed == 0 {
		if h.svc.IsStatic(id) {
			response.Error(c, errors.ErrConnectionNotDeletable)
			return
		}
		response.Error(c, errors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "removed": removed})
}

func parseConnectionInput(c *gin.Context) (services.ConnectionInput, bool) {
	body, ok := readBody(c)
	if !ok {
		return services.ConnectionInput{}, false
	}
	input, err := services.ParseConnectionInput(body)
	if err != nil {
		response.Error(c, err)
		return services.ConnectionInput{}, false
	}
	return input, true
}
