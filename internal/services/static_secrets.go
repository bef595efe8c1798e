package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used to load static connections.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsManagerClient builds a client from the default AWS credential chain.
func NewSecretsManagerClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ensureContext(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// LoadSecretsManagerConnections reads static connection definitions from a secret.
// The secret holds either a JSON array of definitions or an object with a "connections" array.
func LoadSecretsManagerConnections(ctx context.Context, client SecretsManagerAPI, secretID string) ([]StaticConnectionDefinition, error) {
	if client == nil {
		return nil, errors.New("secrets manager: client is required")
	}
	secretID = strings.TrimSpace(secretID)
	if secretID == "" {
		return nil, errors.New("secrets manager: secret id is required")
	}

	out, err := client.GetSecretValue(ensureContext(ctx), &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("secrets manager: get secret %s: %w", maskSecretID(secretID), err)
	}

	var body []byte
	switch {
	case out.SecretString != nil:
		body = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		body = out.SecretBinary
	default:
		return nil, fmt.Errorf("secrets manager: secret %s is empty", maskSecretID(secretID))
	}

	definitions, err := decodeStaticDefinitions(body)
	if err != nil {
		return nil, fmt.Errorf("secrets manager: secret %s: %w", maskSecretID(secretID), err)
	}
	return definitions, nil
}

func decodeStaticDefinitions(body []byte) ([]StaticConnectionDefinition, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty document")
	}

	if body[0] == '[' {
		var definitions []StaticConnectionDefinition
		if err := json.Unmarshal(body, &definitions); err != nil {
			return nil, fmt.Errorf("decode connections: %w", err)
		}
		return definitions, nil
	}

	var wrapper struct {
		Connections []StaticConnectionDefinition `json:"connections"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode connections: %w", err)
	}
	return wrapper.Connections, nil
}

func maskSecretID(id string) string {
	if len(id) <= 12 {
		return "***"
	}
	return "..." + id[len(id)-8:]
}
