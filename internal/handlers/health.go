package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/queryhub/pkg/errors"
	"github.com/charlesng35/queryhub/pkg/response"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Health returns a status payload useful for readiness checks. When ping is set,
// the datastore must answer within a short timeout.
func Health(ping Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(requestContext(c), healthTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				response.Error(c, errors.New("DATABASE_UNAVAILABLE", "Database is unreachable", http.StatusServiceUnavailable).WithInternal(err))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
