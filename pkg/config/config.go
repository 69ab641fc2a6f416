// Package config loads the optional YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/praetorian-inc/corpora/pkg/catalog"
	"github.com/praetorian-inc/corpora/pkg/corpus"
	"github.com/praetorian-inc/corpora/pkg/pathfilter"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "corpora.yaml"

// DefaultIgnoreFile is the per-root ignore rules file name.
const DefaultIgnoreFile = ".corpusignore"

// DefaultCacheFile stores catalog labels.
const DefaultCacheFile = "corpora-labels.db"

// Config is the root YAML structure.
type Config struct {
	// Ignore holds gitignore-style patterns applied on top of the
	// built-in rules.
	Ignore []string `yaml:"ignore"`
	// IgnoreFile names a rules file read from the root of every
	// directory input when present.
	IgnoreFile string `yaml:"ignore_file"`

	HandledElsewhere []string `yaml:"handled_elsewhere"`
	BinaryExtensions []string `yaml:"binary_extensions"`

	MaxFileSize       ByteSize `yaml:"max_file_size"`
	Workers           int      `yaml:"workers"`
	ExpandContainers  *bool    `yaml:"expand_containers"`
	MaxContainerDepth int      `yaml:"max_container_depth"`

	// OutputDir receives produced corpora and decoded trees. Empty means
	// next to each input.
	OutputDir string `yaml:"output_dir"`

	Catalog CatalogConfig `yaml:"catalog"`
}

// CatalogConfig configures the catalog command.
type CatalogConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	// Cache is the label database path, or ":memory:".
	Cache string `yaml:"cache"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	expand := true
	return &Config{
		IgnoreFile:        DefaultIgnoreFile,
		HandledElsewhere:  append([]string(nil), corpus.DefaultHandledElsewhere...),
		BinaryExtensions:  append([]string(nil), corpus.DefaultBinaryExtensions...),
		Workers:           1,
		ExpandContainers:  &expand,
		MaxContainerDepth: corpus.DefaultMaxContainerDepth,
		Catalog: CatalogConfig{
			Endpoint: catalog.DefaultEndpoint,
			Model:    catalog.DefaultModel,
			Cache:    DefaultCacheFile,
		},
	}
}

// Parse reads YAML over the defaults. Keys absent from data keep their
// default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the file at path. An empty path tries DefaultFile in the
// working directory and returns the defaults when it does not exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxContainerDepth < 0 {
		return fmt.Errorf("max_container_depth must not be negative, got %d", c.MaxContainerDepth)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative")
	}
	return nil
}

// Filter builds the path filter for an input root. The root's ignore file
// is added when it exists.
func (c *Config) Filter(root string) (*pathfilter.Filter, error) {
	opts := []pathfilter.Option{pathfilter.WithRules(c.Ignore...)}
	if c.IgnoreFile != "" && root != "" {
		rulesPath := filepath.Join(root, c.IgnoreFile)
		if info, err := os.Stat(rulesPath); err == nil && info.Mode().IsRegular() {
			opts = append(opts, pathfilter.WithRulesFile(rulesPath))
		}
	}
	return pathfilter.New(opts...)
}

// EncoderConfig translates the file settings for the encoder of root.
func (c *Config) EncoderConfig(root string, logger *slog.Logger) (corpus.Config, error) {
	filter, err := c.Filter(root)
	if err != nil {
		return corpus.Config{}, err
	}
	return corpus.Config{
		Filter:            filter,
		HandledElsewhere:  c.HandledElsewhere,
		BinaryExtensions:  c.BinaryExtensions,
		MaxFileSize:       int64(c.MaxFileSize),
		Workers:           c.Workers,
		SkipContainers:    c.ExpandContainers != nil && !*c.ExpandContainers,
		MaxContainerDepth: c.MaxContainerDepth,
		Logger:            logger,
	}, nil
}

// ByteSize is a size in bytes that accepts unit suffixes in YAML
// ("512", "64KB", "10MB", "1GB").
type ByteSize int64

var byteUnits = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"G", 1 << 30},
	{"M", 1 << 20},
	{"K", 1 << 10},
	{"B", 1},
}

// ParseByteSize parses a size with an optional unit suffix.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	factor := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(s, u.suffix) {
			factor = u.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return ByteSize(n * factor), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	size, err := ParseByteSize(value.Value)
	if err != nil {
		return err
	}
	*b = size
	return nil
}
