package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/queryhub/pkg/errors"
	"github.com/charlesng35/queryhub/pkg/response"
)

const maxRequestBodyBytes = 1 << 20

// readBody returns the raw JSON payload. When it cannot be read, an error response
// is written and false is returned.
func readBody(c *gin.Context) ([]byte, bool) {
	if c.Request == nil || c.Request.Body == nil {
		response.Error(c, appErrors.NewBadRequest("request body is required"))
		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.NewBadRequest("request body is too large"))
			return nil, false
		}
		response.Error(c, appErrors.NewBadRequest("unable to read request body"))
		return nil, false
	}
	if len(body) == 0 {
		response.Error(c, appErrors.NewBadRequest("request body is required"))
		return nil, false
	}
	return body, true
}
