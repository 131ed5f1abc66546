package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the weld configuration
type Config struct {
	ProjectName string         `mapstructure:"project_name"`
	Generate    GenerateConfig `mapstructure:"generate"`
	Classify    ClassifyConfig `mapstructure:"classify"`
}

// GenerateConfig represents output configuration
type GenerateConfig struct {
	// Suffix is appended to the package name to form the generated
	// file name, e.g. "services" + "_weld.go".
	Suffix string `mapstructure:"suffix"`
	// Header replaces the default generated-code banner when set.
	Header string `mapstructure:"header"`
	// Packages limits generation to the listed directories. Empty
	// means every package passed on the command line.
	Packages []string `mapstructure:"packages"`
}

// ClassifyConfig tunes parameter classification
type ClassifyConfig struct {
	// ServiceSuffixes extends the built-in type name suffixes that
	// mark a parameter as an injectable service.
	ServiceSuffixes []string `mapstructure:"service_suffixes"`
	// Primitives extends the built-in set of type names treated as
	// caller-supplied runtime values.
	Primitives []string `mapstructure:"primitives"`
}

// Load loads the configuration from weld.yml or weld.yaml
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("generate.suffix", "_weld.go")

	// Set config name and paths. Running from a subdirectory still
	// picks up the weld.yml at the project root.
	v.SetConfigName("weld")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if root, err := GetProjectRoot(); err == nil {
		v.AddConfigPath(root)
	}

	// Enable environment variable support
	v.SetEnvPrefix("WELD")
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetProjectRoot tries to find the project root by looking for weld.yml,
// falling back to the enclosing go.mod.
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		// Check for weld.yml or weld.yaml
		if _, err := os.Stat(filepath.Join(dir, "weld.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "weld.yaml")); err == nil {
			return dir, nil
		}

		// Check for go.mod as fallback
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", fmt.Errorf("not in a Go project (no weld.yml or go.mod found)")
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Generate.Suffix != "" {
		if !strings.HasSuffix(cfg.Generate.Suffix, ".go") {
			return fmt.Errorf("generate.suffix must end with '.go', got: %s", cfg.Generate.Suffix)
		}
		if strings.HasSuffix(cfg.Generate.Suffix, "_test.go") {
			return fmt.Errorf("generate.suffix must not end with '_test.go', got: %s", cfg.Generate.Suffix)
		}
	}
	for _, s := range cfg.Classify.ServiceSuffixes {
		if s == "" {
			return fmt.Errorf("classify.service_suffixes must not contain empty entries")
		}
	}
	return nil
}
