package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/queryhub/internal/api"
	"github.com/charlesng35/queryhub/internal/app"
	"github.com/charlesng35/queryhub/internal/database"
	"github.com/charlesng35/queryhub/internal/drivers"
	"github.com/charlesng35/queryhub/internal/services"
	"github.com/charlesng35/queryhub/internal/vault"
	"github.com/charlesng35/queryhub/pkg/logger"
)

const defaultSecretsTimeout = 10 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB          *gorm.DB
	Connections *services.ConnectionService
	Router      *gin.Engine
}

// secretsLoader fetches static definitions from an external secret store.
type secretsLoader func(ctx context.Context, cfg app.SecretsManagerConfig) ([]services.StaticConnectionDefinition, error)

// bootstrapRuntime initialises the database, the connection registry and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, generated map[string]bool, loadSecrets secretsLoader, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	codec, err := buildPayloadCodec(ctx, cfg, stack.DB, generated)
	if err != nil {
		return nil, err
	}

	definitions := cfg.StaticDefinitions()
	if cfg.Vault.SecretsManager.Enabled {
		if loadSecrets == nil {
			loadSecrets = loadSecretsManagerDefinitions
		}
		remote, err := loadSecrets(ctx, cfg.Vault.SecretsManager)
		if err != nil {
			return nil, fmt.Errorf("load static connections from secrets manager: %w", err)
		}
		log.Info("static connections loaded from secrets manager", zap.Int("count", len(remote)))
		definitions = append(definitions, remote...)
	}

	static, err := services.NewStaticConnections(definitions)
	if err != nil {
		return nil, fmt.Errorf("initialise static connections: %w", err)
	}

	store, err := services.NewGormConnectionStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise connection store: %w", err)
	}

	mode, err := cfg.Registry.OperatingMode()
	if err != nil {
		return nil, err
	}

	registry := drivers.DefaultRegistry()
	stack.Connections, err = services.NewConnectionService(store, static,
		services.WithLogger(logger.WithModule("connections")),
		services.WithMode(mode),
		services.WithCodec(codec),
		services.WithDriverResolver(registry),
		services.WithMaxRows(cfg.Query.MaxRows()),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise connection service: %w", err)
	}

	collisions, err := stack.Connections.DetectCollisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("check connection collisions: %w", err)
	}
	for _, id := range collisions {
		log.Warn("connection id declared both in configuration and in the database", zap.String("connection_id", id))
	}

	log.Info("connection registry ready",
		zap.String("mode", mode.String()),
		zap.String("payload_encoding", string(codec.Encoding())),
		zap.Int("static_connections", static.Len()),
	)

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:      cfg,
		DB:          stack.DB,
		Connections: stack.Connections,
		Drivers:     registry,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases resources held by the stack.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}
	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// buildPayloadCodec picks the codec for stored payloads. A generated passphrase is replaced by
// the one persisted by an earlier run, if any.
func buildPayloadCodec(ctx context.Context, cfg *app.Config, db *gorm.DB, generated map[string]bool) (services.PayloadCodec, error) {
	encoding, err := cfg.Vault.Encoding()
	if err != nil {
		return nil, err
	}
	if encoding == services.EncodingPlain {
		return services.NewPayloadCodec(encoding, nil)
	}

	passphrase := cfg.Vault.Passphrase
	if generated["vault.passphrase"] {
		passphrase, err = database.EnsurePayloadPassphrase(ctx, db, passphrase)
		if err != nil {
			return nil, fmt.Errorf("persist payload passphrase: %w", err)
		}
		cfg.Vault.Passphrase = passphrase
	}

	crypto, err := vault.NewCrypto(passphrase)
	if err != nil {
		return nil, fmt.Errorf("initialise payload crypto: %w", err)
	}
	return services.NewPayloadCodec(encoding, crypto)
}

func loadSecretsManagerDefinitions(ctx context.Context, cfg app.SecretsManagerConfig) ([]services.StaticConnectionDefinition, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSecretsTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := services.NewSecretsManagerClient(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return services.LoadSecretsManagerConnections(ctx, client, cfg.SecretID)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Prepare(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("prepare database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	var auth app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = cfg.Database.Postgres
	case "mysql":
		auth = cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = strings.TrimSpace(auth.Password)
	dbCfg.Options = auth.Options
	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
