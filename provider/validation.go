package provider

import (
	"context"
	"fmt"
	"log/slog"

	"chatkit/model"
)

// Validate checks a provider's connectivity and credentials by constructing
// it from the given config and pinging it. Used before saving settings so a
// bad API key is caught up front rather than on the first chat.
func Validate(ctx context.Context, cfg Config) error {
	p, err := NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	slog.Debug("provider ping successful", "provider", cfg.Type)
	return nil
}

// FetchModels lists the models a configured provider offers.
func FetchModels(ctx context.Context, cfg Config) ([]model.ModelInfo, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("fetched models", "provider", cfg.Type, "count", len(models))
	return models, nil
}
