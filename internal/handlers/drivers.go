package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/queryhub/internal/drivers"
	"github.com/charlesng35/queryhub/pkg/response"
)

// DriverHandler publishes the driver catalogue.
type DriverHandler struct {
	registry *drivers.Registry
}

// NewDriverHandler constructs a DriverHandler.
func NewDriverHandler(registry *drivers.Registry) *DriverHandler {
	return &DriverHandler{registry: registry}
}

// List returns every registered driver with its capabilities.
func (h *DriverHandler) List(c *gin.Context) {
	response.Success(c, http.StatusOK, h.registry.Describe())
}
