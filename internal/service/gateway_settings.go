package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paysettle/config"
	"paysettle/internal/domain"
	"paysettle/internal/repository"
	"paysettle/pkg/monnify"
)

// SettingsStore reads and seeds key/value settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	SeedDefaults(ctx context.Context, defaults map[string]string) error
}

// LoadGatewaySettings builds the gateway configuration once at startup.
// Stored settings win; anything missing falls back to cfg.
func LoadGatewaySettings(ctx context.Context, store SettingsStore, cfg config.MonnifyConfig, logger *zap.Logger) monnify.Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	get := func(key, fallback string) string {
		if store == nil {
			return fallback
		}
		v, err := store.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, repository.ErrSettingNotFound) {
				logger.Warn("[Settings] read failed, using config value", zap.String("key", key), zap.Error(err))
			}
			return fallback
		}
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return strings.TrimSpace(v)
	}

	mode := strings.ToLower(get(domain.SettingMonnifyMode, cfg.Mode))
	if mode != monnify.ModeLive {
		mode = monnify.ModeTest
	}
	baseURL := cfg.SandboxURL
	if mode == monnify.ModeLive {
		baseURL = cfg.LiveURL
	}
	if baseURL == "" {
		baseURL = monnify.BaseURLFor(mode)
	}

	return monnify.Config{
		Mode:         mode,
		BaseURL:      baseURL,
		APIKey:       get(fmt.Sprintf(domain.SettingMonnifyAPIKey, mode), cfg.APIKey),
		SecretKey:    get(fmt.Sprintf(domain.SettingMonnifySecretKey, mode), cfg.SecretKey),
		ContractCode: get(fmt.Sprintf(domain.SettingMonnifyContractCode, mode), cfg.ContractCode),
		Timeout:      cfg.Timeout,
	}
}

// SeedGatewaySettings stores the configured mode if no mode has been saved yet.
func SeedGatewaySettings(ctx context.Context, store SettingsStore, cfg config.MonnifyConfig) error {
	mode := strings.ToLower(cfg.Mode)
	if mode == "" {
		mode = monnify.ModeTest
	}
	return store.SeedDefaults(ctx, map[string]string{domain.SettingMonnifyMode: mode})
}

// MaskedGatewayConfig is safe to show to operators.
func MaskedGatewayConfig(cfg monnify.Config) map[string]string {
	return map[string]string{
		"mode":          cfg.Mode,
		"base_url":      cfg.BaseURL,
		"api_key":       mask(cfg.APIKey),
		"secret_key":    mask(cfg.SecretKey),
		"contract_code": mask(cfg.ContractCode),
	}
}

func mask(v string) string {
	if v == "" {
		return "not set"
	}
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", len(v)-8) + v[len(v)-4:]
}
