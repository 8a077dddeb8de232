// =============================================================================
// Refactura Builder - Configuration Module
// =============================================================================
//
// Runtime configuration for the submission pipeline. The category and
// currency enumerations live here rather than in code: the observed
// submission form allows two values of each, but that is data, not a
// structural limit, and widening either list must not require a rebuild.
//
// The file is optional. Every field has a default matching the observed
// submission format, so a missing config.yaml yields a fully working setup.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the pipeline configuration.
type Config struct {
	// Categories are the allowed expense categories. The first entry is the
	// default assigned at parse time.
	Categories []string `yaml:"categories"`

	// Currencies are the allowed currency codes for the spreadsheet's
	// drop-down validation.
	Currencies []string `yaml:"currencies"`

	// DefaultCurrency is assigned when a payload declares no Moneda.
	DefaultCurrency string `yaml:"default_currency"`

	// LabelWidth is the zero-padding width of sequence labels.
	LabelWidth int `yaml:"label_width"`

	// SheetName is the single worksheet's name.
	SheetName string `yaml:"sheet_name"`

	// SpreadsheetFileName is the spreadsheet's name at the archive root.
	SpreadsheetFileName string `yaml:"spreadsheet_file_name"`

	// PackageFileName is the suggested download name for the archive.
	PackageFileName string `yaml:"package_file_name"`

	// ValidationPaddingRows is how many rows past the data the spreadsheet's
	// input validations extend, leaving room for manual additions.
	ValidationPaddingRows int `yaml:"validation_padding_rows"`
}

// Load reads a YAML configuration file and applies defaults to unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns the default configuration when
// the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Default returns the configuration matching the observed submission format.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if len(cfg.Categories) == 0 {
		cfg.Categories = []string{"Miscellaneous", "Gasoline"}
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = []string{"MXN", "USD"}
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "MXN"
	}
	if cfg.LabelWidth == 0 {
		cfg.LabelWidth = 2
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "SUBMISSION IVA FORM"
	}
	if cfg.SpreadsheetFileName == "" {
		cfg.SpreadsheetFileName = "SUBMISSION_IVA_FORM.xlsx"
	}
	if cfg.PackageFileName == "" {
		cfg.PackageFileName = "refactura_package.zip"
	}
	if cfg.ValidationPaddingRows == 0 {
		cfg.ValidationPaddingRows = 50
	}
}

func validate(cfg *Config) error {
	if cfg.LabelWidth < 1 {
		return fmt.Errorf("label_width must be positive, got %d", cfg.LabelWidth)
	}
	if cfg.ValidationPaddingRows < 0 {
		return fmt.Errorf("validation_padding_rows must not be negative, got %d", cfg.ValidationPaddingRows)
	}

	for _, c := range cfg.Currencies {
		if len(c) != 3 {
			return fmt.Errorf("currency code %q is not a 3-letter code", c)
		}
	}

	return nil
}

// CategoryAllowed reports whether category is in the configured enumeration.
func (c *Config) CategoryAllowed(category string) bool {
	for _, v := range c.Categories {
		if v == category {
			return true
		}
	}
	return false
}

// CurrencyAllowed reports whether code is in the configured enumeration.
func (c *Config) CurrencyAllowed(code string) bool {
	for _, v := range c.Currencies {
		if v == code {
			return true
		}
	}
	return false
}
