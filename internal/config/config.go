// Package config handles configuration loading and management for contribgate.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectConfigName is the file name searched for from the working
// directory upwards.
const ProjectConfigName = ".contribgate.yaml"

// EnvPrefix prefixes environment overrides, e.g. CONTRIBGATE_LOG_LEVEL.
const EnvPrefix = "CONTRIBGATE"

// ErrUnknownKey is returned by Get and Set for keys that have no default.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds all configuration for contribgate.
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	Data    DataConfig    `mapstructure:"data"`
	CI      CIConfig      `mapstructure:"ci"`
	State   StateConfig   `mapstructure:"state"`
	Log     LogConfig     `mapstructure:"log"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// ProjectConfig describes the contribution layout.
type ProjectConfig struct {
	// ContribRoot is the repo-relative contribution subtree.
	ContribRoot string `mapstructure:"contrib_root"`
	// Package is the module ID prefix for ContribRoot.
	Package   string   `mapstructure:"package"`
	Extension string   `mapstructure:"extension"`
	Depth     int      `mapstructure:"depth"`
	Exclude   []string `mapstructure:"exclude"`
	// MainBranch is the line pull requests are compared against.
	MainBranch string `mapstructure:"main_branch"`
}

// DataConfig locates the development dataset.
type DataConfig struct {
	Path   string `mapstructure:"path"`
	Target string `mapstructure:"target"`
}

// CIConfig selects the build context provider.
type CIConfig struct {
	// Provider is auto, travis, github or local.
	Provider string `mapstructure:"provider"`
}

// StateConfig holds run ledger settings.
type StateConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// GitHubConfig holds settings for the pull request outcome tally.
type GitHubConfig struct {
	// Repo is owner/name.
	Repo   string `mapstructure:"repo"`
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (CONTRIBGATE_*)
// 2. Project config (.contribgate.yaml in current directory or parent)
// 3. User config (~/.config/contribgate/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v, err := loadViper()
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

func loadViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return v, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.GitHub.Token = expandEnv(cfg.GitHub.Token)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.Project.ContribRoot == "" {
		return fmt.Errorf("project.contrib_root must be set")
	}
	if c.Project.Depth < 0 {
		return fmt.Errorf("project.depth must not be negative, got %d", c.Project.Depth)
	}
	if !strings.HasPrefix(c.Project.Extension, ".") {
		return fmt.Errorf("project.extension must start with a dot, got %q", c.Project.Extension)
	}
	switch c.CI.Provider {
	case "auto", "travis", "github", "local":
	default:
		return fmt.Errorf("ci.provider must be auto, travis, github or local, got %q", c.CI.Provider)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveTo(GetUserConfigPath(), cfg)
}

// SaveTo writes the configuration to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)

	v.Set("project.contrib_root", cfg.Project.ContribRoot)
	v.Set("project.package", cfg.Project.Package)
	v.Set("project.extension", cfg.Project.Extension)
	v.Set("project.depth", cfg.Project.Depth)
	v.Set("project.exclude", cfg.Project.Exclude)
	v.Set("project.main_branch", cfg.Project.MainBranch)
	v.Set("data.path", cfg.Data.Path)
	v.Set("data.target", cfg.Data.Target)
	v.Set("ci.provider", cfg.CI.Provider)
	v.Set("state.enabled", cfg.State.Enabled)
	v.Set("state.path", cfg.State.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.file", cfg.Log.File)
	v.Set("github.repo", cfg.GitHub.Repo)
	v.Set("github.api_url", cfg.GitHub.APIURL)
	v.Set("watch.debounce", cfg.Watch.Debounce.String())

	return v.WriteConfig()
}

// Keys returns every known configuration key, sorted.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

func knownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the effective value of a dotted key.
func Get(key string) (any, error) {
	key = strings.ToLower(key)
	if !knownKey(key) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	v, err := loadViper()
	if err != nil {
		return nil, err
	}
	return v.Get(key), nil
}

// Set writes a single dotted key to the config file at path, keeping the
// other keys already stored there.
func Set(path, key, value string) error {
	key = strings.ToLower(key)
	if !knownKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if key == "project.exclude" {
		v.Set(key, splitList(value))
	} else {
		v.Set(key, value)
	}
	return v.WriteConfigAs(path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.contrib_root", "features/contrib")
	v.SetDefault("project.package", "contrib")
	v.SetDefault("project.extension", ".yaml")
	v.SetDefault("project.depth", 1)
	v.SetDefault("project.exclude", []string{})
	v.SetDefault("project.main_branch", "master")

	v.SetDefault("data.path", "data/train.csv")
	v.SetDefault("data.target", "target")

	v.SetDefault("ci.provider", "auto")

	v.SetDefault("state.enabled", true)
	v.SetDefault("state.path", filepath.Join(".contribgate", "state.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("github.repo", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", "https://api.github.com")

	v.SetDefault("watch.debounce", "300ms")
}

// getUserConfigDir returns the XDG config directory for contribgate.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "contribgate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "contribgate")
	}
	return filepath.Join(home, ".config", "contribgate")
}

// findProjectConfig searches for .contribgate.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findProjectConfigFrom(cwd)
}

func findProjectConfigFrom(dir string) string {
	for {
		configPath := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			ContribRoot: "features/contrib",
			Package:     "contrib",
			Extension:   ".yaml",
			Depth:       1,
			Exclude:     []string{},
			MainBranch:  "master",
		},
		Data: DataConfig{
			Path:   "data/train.csv",
			Target: "target",
		},
		CI: CIConfig{Provider: "auto"},
		State: StateConfig{
			Enabled: true,
			Path:    filepath.Join(".contribgate", "state.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
		},
		Watch: WatchConfig{Debounce: 300 * time.Millisecond},
	}
}
