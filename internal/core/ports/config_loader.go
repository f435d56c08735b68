package ports

import "go.trai.ch/kiln/internal/core/domain"

// ConfigLoader defines the interface for loading the pipeline configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers kiln.yaml by walking up from cwd and returns the resolved pipeline.
	// Environment overrides from the .env file next to it are applied.
	Load(cwd string) (*domain.Pipeline, error)
}
