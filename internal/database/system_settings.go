package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/queryhub/internal/models"
)

// PayloadPassphraseSetting stores the generated passphrase protecting connection payloads.
const PayloadPassphraseSetting = "connections.payload_passphrase"

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Take(&setting, "key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

// EnsurePayloadPassphrase returns the stored payload passphrase, persisting candidate when none exists.
// A stored value always wins so ciphertext written by earlier runs stays readable.
func EnsurePayloadPassphrase(ctx context.Context, db *gorm.DB, candidate string) (string, error) {
	candidate = strings.TrimSpace(candidate)

	current, err := GetSystemSetting(ctx, db, PayloadPassphraseSetting)
	if err != nil {
		return "", err
	}
	if current = strings.TrimSpace(current); current != "" {
		return current, nil
	}

	if candidate == "" {
		return "", fmt.Errorf("system settings: payload passphrase is empty")
	}
	if err := UpsertSystemSetting(ctx, db, PayloadPassphraseSetting, candidate); err != nil {
		return "", err
	}
	return candidate, nil
}
