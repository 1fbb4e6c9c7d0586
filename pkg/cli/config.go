package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".speakerid"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"

	// EnvBaseURL overrides the embedding service base URL.
	EnvBaseURL = "SPEAKERID_BASE_URL"
	// EnvAPIKey overrides the embedding service API key.
	EnvAPIKey = "SPEAKERID_API_KEY"
)

// Config represents the on-disk CLI configuration.
type Config struct {
	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	// configPath is the path to the config file
	configPath string
}

// Context holds the settings for one embedding service deployment.
type Context struct {
	// Name is the context name
	Name string `yaml:"name"`

	// BaseURL is the embedding service base URL
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is the embedding service API key
	APIKey string `yaml:"api_key,omitempty"`

	// StoreDir is the speaker profile database directory
	// (defaults to <configdir>/profiles)
	StoreDir string `yaml:"store_dir,omitempty"`

	// S3Region is the AWS region for s3:// recording URIs (optional)
	S3Region string `yaml:"s3_region,omitempty"`

	// S3Endpoint overrides the S3 endpoint, for S3-compatible stores (optional)
	S3Endpoint string `yaml:"s3_endpoint,omitempty"`
}

// LoadConfig loads or creates the configuration file.
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath("")
}

// LoadConfigWithPath loads configuration from a custom path.
func LoadConfigWithPath(customPath string) (*Config, error) {
	var configPath string

	if customPath != "" {
		configPath = customPath
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, DefaultBaseDir, DefaultConfigFile)
	}

	// Ensure config directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create empty config file
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Ensure contexts map is initialized
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}

	cfg.configPath = configPath

	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// SetContext adds or replaces a context.
func (c *Config) SetContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ListContexts returns all context names
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	return names
}

// Resolve returns the effective context: the named context (or the
// current one when name is empty), with environment variable overrides
// applied and StoreDir defaulted. A missing context is not an error when
// environment variables supply the service settings; the returned
// context simply carries whatever is known, and a blank BaseURL or
// APIKey surfaces later as a not-configured service.
func (c *Config) Resolve(name string) *Context {
	var ctx *Context
	if name == "" {
		name = c.CurrentContext
	}
	if name != "" {
		if found, ok := c.Contexts[name]; ok {
			cp := *found
			ctx = &cp
		}
	}
	if ctx == nil {
		ctx = &Context{Name: name}
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		ctx.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		ctx.APIKey = v
	}
	if ctx.StoreDir == "" {
		ctx.StoreDir = filepath.Join(c.Dir(), "profiles")
	}

	return ctx
}

// MaskAPIKey masks the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
