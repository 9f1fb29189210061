// Package config provides configuration loading and management for relex.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/relex/pkg/assemble"
	"github.com/japaniel/relex/pkg/hearst"
	"github.com/japaniel/relex/pkg/lang"
)

// FormatNone disables streamed output.
const FormatNone = "none"

// Config represents the complete relex configuration
type Config struct {
	// Language is a registered language code or name (en, german, ...).
	Language  string          `yaml:"language"`
	Extract   ExtractConfig   `yaml:"extract"`
	Annotator AnnotatorConfig `yaml:"annotator"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Store     StoreConfig     `yaml:"store"`
	Output    OutputConfig    `yaml:"output"`
}

// ExtractConfig configures both extraction engines
type ExtractConfig struct {
	// Rules is the rule table variant (empty = the language default)
	Rules string `yaml:"rules"`
	// Extended appends the extended rule set to the variant
	Extended bool `yaml:"extended"`
	// RulesFile loads a rule table from YAML instead of a built-in variant
	RulesFile string `yaml:"rules_file"`
	// Marker overrides the noun-phrase marker (must end with "_")
	Marker string `yaml:"marker"`
	// Width bounds the short-relation walk (0 = language default)
	Width int `yaml:"width"`
	// DirectLabels restricts direct relations to these dependency labels (empty = all)
	DirectLabels []string `yaml:"direct_labels"`
	// Gazetteer is an optional JSON entity list used for span widening
	Gazetteer string `yaml:"gazetteer"`
}

// AnnotatorConfig configures the annotation service
type AnnotatorConfig struct {
	// Endpoint is the annotation server URL (empty = local analysis where the language has one)
	Endpoint string `yaml:"endpoint"`
	// Model is passed through to the server
	Model string `yaml:"model"`
	// Timeout bounds one annotation call
	Timeout time.Duration `yaml:"timeout"`
}

// PipelineConfig configures concurrency and batching
type PipelineConfig struct {
	Workers       int           `yaml:"workers"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// StoreConfig configures the sqlite triple store
type StoreConfig struct {
	// Path is the database file (empty = no store)
	Path string `yaml:"path"`
	// Resume continues after the last stored sentence of a known source
	Resume bool `yaml:"resume"`
}

// OutputConfig configures streamed triple output
type OutputConfig struct {
	// Format is tsv, jsonl or none
	Format string `yaml:"format"`
	// Path is the output file (empty = stdout)
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Language: "en",
		Annotator: AnnotatorConfig{
			Timeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:       4,
			BatchSize:     50,
			FlushInterval: 100 * time.Millisecond,
		},
		Store: StoreConfig{
			Resume: true,
		},
		Output: OutputConfig{
			Format: assemble.FormatTSV,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := lang.New(c.Language, lang.Options{}); err != nil {
		return fmt.Errorf("language: %w", err)
	}
	if c.Extract.RulesFile == "" && c.Extract.Rules != "" {
		if _, err := hearst.Variant(c.Extract.Rules, c.Extract.Extended); err != nil {
			return fmt.Errorf("extract.rules: %w", err)
		}
	}
	if c.Extract.Marker != "" && !strings.HasSuffix(c.Extract.Marker, "_") {
		return fmt.Errorf("extract.marker must end with \"_\"")
	}
	if c.Extract.Width < 0 {
		return fmt.Errorf("extract.width must not be negative")
	}
	if c.Annotator.Timeout <= 0 {
		return fmt.Errorf("annotator.timeout must be positive")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline.batch_size must be at least 1")
	}
	switch strings.ToLower(c.Output.Format) {
	case assemble.FormatTSV, assemble.FormatJSONL, FormatNone:
	default:
		return fmt.Errorf("output.format must be one of tsv, jsonl, none")
	}
	if strings.EqualFold(c.Output.Format, FormatNone) && c.Store.Path == "" {
		return errors.New("nothing to do: output.format is none and store.path is empty")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Language != "" {
		c.Language = other.Language
	}

	// Extract
	if other.Extract.Rules != "" {
		c.Extract.Rules = other.Extract.Rules
	}
	if other.Extract.Extended {
		c.Extract.Extended = true
	}
	if other.Extract.RulesFile != "" {
		c.Extract.RulesFile = other.Extract.RulesFile
	}
	if other.Extract.Marker != "" {
		c.Extract.Marker = other.Extract.Marker
	}
	if other.Extract.Width != 0 {
		c.Extract.Width = other.Extract.Width
	}
	if len(other.Extract.DirectLabels) > 0 {
		c.Extract.DirectLabels = other.Extract.DirectLabels
	}
	if other.Extract.Gazetteer != "" {
		c.Extract.Gazetteer = other.Extract.Gazetteer
	}

	// Annotator
	if other.Annotator.Endpoint != "" {
		c.Annotator.Endpoint = other.Annotator.Endpoint
	}
	if other.Annotator.Model != "" {
		c.Annotator.Model = other.Annotator.Model
	}
	if other.Annotator.Timeout != 0 {
		c.Annotator.Timeout = other.Annotator.Timeout
	}

	// Pipeline
	if other.Pipeline.Workers != 0 {
		c.Pipeline.Workers = other.Pipeline.Workers
	}
	if other.Pipeline.BatchSize != 0 {
		c.Pipeline.BatchSize = other.Pipeline.BatchSize
	}
	if other.Pipeline.FlushInterval != 0 {
		c.Pipeline.FlushInterval = other.Pipeline.FlushInterval
	}

	// Store
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Path != "" {
		c.Output.Path = other.Output.Path
	}
}

// Viper keys read by Overlay. Flags and RELEX_* environment variables are
// bound to these names.
const (
	KeyLanguage          = "language"
	KeyRules             = "rules"
	KeyExtended          = "extended"
	KeyRulesFile         = "rules-file"
	KeyMarker            = "marker"
	KeyWidth             = "width"
	KeyDirectLabels      = "direct-labels"
	KeyGazetteer         = "gazetteer"
	KeyAnnotatorEndpoint = "annotator"
	KeyAnnotatorModel    = "model"
	KeyAnnotatorTimeout  = "timeout"
	KeyWorkers           = "workers"
	KeyBatchSize         = "batch-size"
	KeyDB                = "db"
	KeyResume            = "resume"
	KeyFormat            = "format"
	KeyOutput            = "output"
)

// Overlay applies every key explicitly set in v (by flag or environment)
// on top of c.
func (c *Config) Overlay(v *viper.Viper) {
	if v == nil {
		return
	}
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	flag := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	str(KeyLanguage, &c.Language)
	str(KeyRules, &c.Extract.Rules)
	flag(KeyExtended, &c.Extract.Extended)
	str(KeyRulesFile, &c.Extract.RulesFile)
	str(KeyMarker, &c.Extract.Marker)
	num(KeyWidth, &c.Extract.Width)
	if v.IsSet(KeyDirectLabels) {
		c.Extract.DirectLabels = v.GetStringSlice(KeyDirectLabels)
	}
	str(KeyGazetteer, &c.Extract.Gazetteer)
	str(KeyAnnotatorEndpoint, &c.Annotator.Endpoint)
	str(KeyAnnotatorModel, &c.Annotator.Model)
	if v.IsSet(KeyAnnotatorTimeout) {
		c.Annotator.Timeout = v.GetDuration(KeyAnnotatorTimeout)
	}
	num(KeyWorkers, &c.Pipeline.Workers)
	num(KeyBatchSize, &c.Pipeline.BatchSize)
	str(KeyDB, &c.Store.Path)
	flag(KeyResume, &c.Store.Resume)
	str(KeyFormat, &c.Output.Format)
	str(KeyOutput, &c.Output.Path)
}

// EnvKeyReplacer maps keys such as batch-size to RELEX_BATCH_SIZE.
var EnvKeyReplacer = strings.NewReplacer(".", "_", "-", "_")
