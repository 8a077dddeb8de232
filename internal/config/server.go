// =============================================================================
// Refactura Builder - Server Configuration
// =============================================================================
//
// Environment-driven settings for the review web surface. These belong to
// the surrounding surface, not to the core pipeline, which stays free of
// environment-variable behavior.
//
// =============================================================================

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ServerConfig holds settings for the review/upload HTTP server.
type ServerConfig struct {
	Port    int           `envconfig:"PORT" default:"8080"`
	Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"60s"`

	// MaxUploadBytes caps one multipart upload request. Scans are expected
	// to be kilobytes to low megabytes each.
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"67108864"`
}

// LoadServer reads the server configuration from the environment.
func LoadServer() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process server config: %w", err)
	}

	return &cfg, nil
}
