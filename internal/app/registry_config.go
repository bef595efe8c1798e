package app

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/charlesng35/queryhub/internal/services"
)

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Query.ResultMaxRows < 0 {
		errs = multierr.Append(errs, fmt.Errorf("query.result_max_rows must not be negative"))
	}
	if _, err := c.Registry.OperatingMode(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("registry.mode: %w", err))
	}

	encoding, err := c.Vault.Encoding()
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("vault.payload_encoding: %w", err))
	}
	if encoding == services.EncodingEncrypted && strings.TrimSpace(c.Vault.Passphrase) != "" {
		if length := PassphraseByteLength(c.Vault.Passphrase); length < minPassphraseBytes {
			errs = multierr.Append(errs, fmt.Errorf("vault.passphrase must be at least %d bytes (got %d)", minPassphraseBytes, length))
		}
	}

	sm := c.Vault.SecretsManager
	if sm.Enabled && strings.TrimSpace(sm.SecretID) == "" {
		errs = multierr.Append(errs, fmt.Errorf("vault.secrets_manager.secret_id is required when enabled"))
	}

	return errs
}

// OperatingMode converts the configured mode into the registry's operating mode.
func (c RegistryConfig) OperatingMode() (services.OperatingMode, error) {
	return services.ParseOperatingMode(c.Mode)
}

// Encoding converts the configured payload encoding.
func (c VaultConfig) Encoding() (services.PayloadEncoding, error) {
	return services.ParsePayloadEncoding(c.PayloadEncoding)
}

// MaxRows returns the configured result limit. An unset key is defaulted by LoadConfig,
// so zero here means zero was configured.
func (c QueryConfig) MaxRows() int64 {
	return c.ResultMaxRows
}

// StaticDefinitions converts the configured connections list.
func (c Config) StaticDefinitions() []services.StaticConnectionDefinition {
	if len(c.Connections) == 0 {
		return nil
	}
	out := make([]services.StaticConnectionDefinition, 0, len(c.Connections))
	for _, conn := range c.Connections {
		out = append(out, services.StaticConnectionDefinition{
			ID:                               conn.ID,
			Name:                             conn.Name,
			Description:                      conn.Description,
			Driver:                           conn.Driver,
			MultiStatementTransactionEnabled: conn.MultiStatementTransactionEnabled,
			IdleTimeoutSeconds:               conn.IdleTimeoutSeconds,
			Data:                             normalizeYAMLMap(conn.Data),
		})
	}
	return out
}

// normalizeYAMLMap turns map[any]any values produced by YAML decoding into map[string]any
// so payloads serialize as JSON objects.
func normalizeYAMLMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = normalizeYAMLValue(value)
	}
	return out
}

func normalizeYAMLValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return normalizeYAMLMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAMLValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeYAMLValue(item)
		}
		return out
	default:
		return value
	}
}
