package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"squiggle/interpreter-go/pkg/dist"
)

// ConfigFileName is the project configuration looked up by FindConfig.
const ConfigFileName = "squiggle.yaml"

// Config models squiggle.yaml.
type Config struct {
	Path        string
	Environment dist.Env
	// Paths are extra filesystem roots searched by the filesystem linker.
	Paths []string
	Git   *GitSource
}

// GitSource points the linker at a revision of a git repository. URL may be
// a local path.
type GitSource struct {
	URL      string
	Revision string
	Dir      string
}

type configDisk struct {
	Environment *environmentDisk `yaml:"environment,omitempty"`
	Paths       []string         `yaml:"paths,omitempty"`
	Git         *gitDisk         `yaml:"git,omitempty"`
}

type environmentDisk struct {
	SampleCount   *int    `yaml:"sampleCount,omitempty"`
	XYPointLength *int    `yaml:"xyPointLength,omitempty"`
	Seed          *string `yaml:"seed,omitempty"`
}

type gitDisk struct {
	URL      string `yaml:"url"`
	Revision string `yaml:"revision,omitempty"`
	Dir      string `yaml:"dir,omitempty"`
}

// DefaultConfig returns a configuration with the default environment.
func DefaultConfig() *Config {
	return &Config{Environment: dist.DefaultEnv}
}

// LoadConfig parses a squiggle.yaml file. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, err := DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", abs, err)
	}
	cfg.Path = abs
	base := filepath.Dir(abs)
	for i, p := range cfg.Paths {
		if !filepath.IsAbs(p) {
			cfg.Paths[i] = filepath.Join(base, p)
		}
	}
	if cfg.Git != nil && isLocalPath(cfg.Git.URL) && !filepath.IsAbs(cfg.Git.URL) {
		cfg.Git.URL = filepath.Join(base, cfg.Git.URL)
	}
	return cfg, nil
}

// DecodeConfig reads a configuration document from r.
func DecodeConfig(r io.Reader) (*Config, error) {
	var raw configDisk
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return raw.toConfig()
}

func (d configDisk) toConfig() (*Config, error) {
	cfg := DefaultConfig()
	if env := d.Environment; env != nil {
		if env.SampleCount != nil {
			cfg.Environment.SampleCount = *env.SampleCount
		}
		if env.XYPointLength != nil {
			cfg.Environment.XYPointLength = *env.XYPointLength
		}
		if env.Seed != nil {
			cfg.Environment.Seed = *env.Seed
		}
	}
	for _, p := range d.Paths {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cfg.Paths = append(cfg.Paths, trimmed)
		}
	}
	if d.Git != nil {
		if strings.TrimSpace(d.Git.URL) == "" {
			return nil, fmt.Errorf("git: missing url")
		}
		cfg.Git = &GitSource{
			URL:      strings.TrimSpace(d.Git.URL),
			Revision: strings.TrimSpace(d.Git.Revision),
			Dir:      strings.Trim(strings.TrimSpace(d.Git.Dir), "/"),
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Environment.SampleCount <= 0 {
		return fmt.Errorf("sampleCount must be positive, got %d", c.Environment.SampleCount)
	}
	if c.Environment.XYPointLength <= 0 {
		return fmt.Errorf("xyPointLength must be positive, got %d", c.Environment.XYPointLength)
	}
	return nil
}

// ApplyEnv overrides fields from SQUIGGLE_SAMPLE_COUNT,
// SQUIGGLE_XY_POINT_LENGTH, SQUIGGLE_SEED and SQUIGGLE_PATH. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SQUIGGLE_SAMPLE_COUNT"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: SQUIGGLE_SAMPLE_COUNT: %w", err)
		}
		c.Environment.SampleCount = n
	}
	if v, ok := lookup("SQUIGGLE_XY_POINT_LENGTH"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: SQUIGGLE_XY_POINT_LENGTH: %w", err)
		}
		c.Environment.XYPointLength = n
	}
	if v, ok := lookup("SQUIGGLE_SEED"); ok && v != "" {
		c.Environment.Seed = v
	}
	if v, ok := lookup("SQUIGGLE_PATH"); ok {
		c.Paths = append(c.Paths, splitPathList(v)...)
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// FindConfig walks from start towards the filesystem root and returns the
// first squiggle.yaml it finds, or "" when there is none.
func FindConfig(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", start, err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config: stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func splitPathList(value string) []string {
	if value == "" {
		return nil
	}
	raw := strings.Split(value, string(os.PathListSeparator))
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isLocalPath(url string) bool {
	return !strings.Contains(url, "://") && !strings.HasPrefix(url, "git@")
}
