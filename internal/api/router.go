package api

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/queryhub/internal/app"
	"github.com/charlesng35/queryhub/internal/drivers"
	"github.com/charlesng35/queryhub/internal/handlers"
	"github.com/charlesng35/queryhub/internal/middleware"
	"github.com/charlesng35/queryhub/internal/services"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Config      *app.Config
	DB          *gorm.DB
	Connections *services.ConnectionService
	Drivers     *drivers.Registry
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Connections == nil {
		return nil, fmt.Errorf("connection service must be provided")
	}
	if deps.Drivers == nil {
		deps.Drivers = drivers.DefaultRegistry()
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, deps.Config, databasePinger(deps.DB))

	api := r.Group("/api")
	registerConnectionRoutes(api, handlers.NewConnectionHandler(deps.Connections))
	registerDriverRoutes(api, handlers.NewDriverHandler(deps.Drivers))

	if prom := deps.Config.Monitoring.Prometheus; prom.Enabled {
		endpoint := prom.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerConnectionRoutes(api *gin.RouterGroup, handler *handlers.ConnectionHandler) {
	connections := api.Group("/connections")
	{
		connections.GET("", handler.List)
		connections.POST("", handler.Create)
		connections.GET("/:id", handler.Get)
		connections.PUT("/:id", handler.Update)
		connections.DELETE("/:id", handler.Delete)
	}
}

func registerDriverRoutes(api *gin.RouterGroup, handler *handlers.DriverHandler) {
	api.GET("/drivers", handler.List)
}

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, ping handlers.Pinger) {
	if !cfg.Monitoring.Health.Enabled {
		return
	}
	r.GET("/health", handlers.Health(ping))
	r.GET("/api/health", handlers.Health(ping))
}

func databasePinger(db *gorm.DB) handlers.Pinger {
	if db == nil {
		return nil
	}
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
