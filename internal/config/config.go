package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"tia/internal/collector"
	"tia/internal/logging"
	"tia/internal/paths"
	"tia/internal/predict"
	"tia/internal/storage"
)

// currentVersion is the config schema version this build reads.
const currentVersion = 1

// Config represents the complete tia configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Storage    StorageConfig    `json:"storage" mapstructure:"storage"`
	Collector  CollectorConfig  `json:"collector" mapstructure:"collector"`
	Prediction PredictionConfig `json:"prediction" mapstructure:"prediction"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Backend   string   `json:"backend" mapstructure:"backend"`
	Dir       string   `json:"dir" mapstructure:"dir"`
	DSN       string   `json:"dsn,omitempty" mapstructure:"dsn"`
	CacheSize int      `json:"cacheSize" mapstructure:"cacheSize"`
	S3        S3Config `json:"s3" mapstructure:"s3"`
}

// S3Config configures the s3 backend
type S3Config struct {
	Endpoint  string `json:"endpoint,omitempty" mapstructure:"endpoint"`
	Region    string `json:"region,omitempty" mapstructure:"region"`
	AccessKey string `json:"accessKey,omitempty" mapstructure:"accessKey"`
	SecretKey string `json:"secretKey,omitempty" mapstructure:"secretKey"`
	Bucket    string `json:"bucket,omitempty" mapstructure:"bucket"`
	Prefix    string `json:"prefix,omitempty" mapstructure:"prefix"`
	UseSSL    bool   `json:"useSSL" mapstructure:"useSSL"`
}

// CollectorConfig controls unit scanning and fact reading
type CollectorConfig struct {
	OutputFolders []string `json:"outputFolders" mapstructure:"outputFolders"`
	Selector      string   `json:"selector" mapstructure:"selector"`
	Include       []string `json:"include,omitempty" mapstructure:"include"`
	Exclude       []string `json:"exclude,omitempty" mapstructure:"exclude"`
	FactsDir      string   `json:"factsDir" mapstructure:"factsDir"`
}

// PredictionConfig controls the prediction rules
type PredictionConfig struct {
	CaptureExecutionData bool             `json:"captureExecutionData" mapstructure:"captureExecutionData"`
	RequireExecutionData bool             `json:"requireExecutionData" mapstructure:"requireExecutionData"`
	Modifiers            []ModifierConfig `json:"modifiers,omitempty" mapstructure:"modifiers"`
}

// ModifierConfig enables one prediction modifier
type ModifierConfig struct {
	Name   string   `json:"name" mapstructure:"name"`
	Values []string `json:"values" mapstructure:"values"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Storage: StorageConfig{
			Backend:   "folder",
			Dir:       paths.DefaultStoreDir,
			CacheSize: 4,
			S3: S3Config{
				Region: "us-east-1",
				UseSSL: true,
			},
		},
		Collector: CollectorConfig{
			OutputFolders: []string{
				"build/classes/java/main",
				"build/classes/java/test",
			},
			Selector: "class-files",
			FactsDir: paths.DefaultFactsDir,
		},
		Prediction: PredictionConfig{
			CaptureExecutionData: false,
			RequireExecutionData: false,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// setDefaults registers every scalar and list key so TIA_* environment
// variables can override keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.cacheSize", d.Storage.CacheSize)
	v.SetDefault("storage.s3.endpoint", d.Storage.S3.Endpoint)
	v.SetDefault("storage.s3.region", d.Storage.S3.Region)
	v.SetDefault("storage.s3.accessKey", d.Storage.S3.AccessKey)
	v.SetDefault("storage.s3.secretKey", d.Storage.S3.SecretKey)
	v.SetDefault("storage.s3.bucket", d.Storage.S3.Bucket)
	v.SetDefault("storage.s3.prefix", d.Storage.S3.Prefix)
	v.SetDefault("storage.s3.useSSL", d.Storage.S3.UseSSL)
	v.SetDefault("collector.outputFolders", d.Collector.OutputFolders)
	v.SetDefault("collector.selector", d.Collector.Selector)
	v.SetDefault("collector.factsDir", d.Collector.FactsDir)
	v.SetDefault("prediction.captureExecutionData", d.Prediction.CaptureExecutionData)
	v.SetDefault("prediction.requireExecutionData", d.Prediction.RequireExecutionData)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// LoadConfig loads configuration from .tia/config.json under root and
// applies TIA_* environment overrides (TIA_STORAGE_BACKEND=sqlite). A missing
// file yields the defaults.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.TiaDir(root))

	v.SetEnvPrefix("TIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to .tia/config.json
func (c *Config) Save(root string) error {
	if err := os.MkdirAll(paths.TiaDir(root), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(paths.TiaDir(root), "config.json"), append(data, '\n'), 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if _, ok := storage.Backends[c.Storage.Backend]; !ok {
		return &ConfigError{Field: "storage.backend", Message: fmt.Sprintf("unknown backend %q (available: %s)",
			c.Storage.Backend, strings.Join(storage.BackendNames(), ", "))}
	}
	if c.Storage.CacheSize < 0 {
		return &ConfigError{Field: "storage.cacheSize", Message: "must not be negative"}
	}
	if len(c.Collector.OutputFolders) == 0 {
		return &ConfigError{Field: "collector.outputFolders", Message: "at least one output folder is required"}
	}
	if _, err := collector.LookupSelector(c.Collector.Selector); err != nil {
		return &ConfigError{Field: "collector.selector", Message: err.Error()}
	}
	for i, m := range c.Prediction.Modifiers {
		if _, err := predict.NewModifier(m.Name, m.Values); err != nil {
			return &ConfigError{Field: fmt.Sprintf("prediction.modifiers[%d]", i), Message: err.Error()}
		}
	}
	if c.Prediction.RequireExecutionData && !c.Prediction.CaptureExecutionData {
		return &ConfigError{Field: "prediction.requireExecutionData", Message: "requires prediction.captureExecutionData"}
	}
	if c.Logging.Format != string(logging.JSONFormat) && c.Logging.Format != string(logging.HumanFormat) {
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
