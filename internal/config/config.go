// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for streamchat.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete streamchat configuration.
type Config struct {
	Backend  BackendConfig  `toml:"backend" json:"backend" yaml:"backend"`
	Chat     ChatConfig     `toml:"chat" json:"chat" yaml:"chat"`
	Identity IdentityConfig `toml:"identity" json:"identity" yaml:"identity"`
	Log      LogConfig      `toml:"log" json:"log" yaml:"log"`
	UI       UIConfig       `toml:"ui" json:"ui" yaml:"ui"`
}

// BackendConfig locates the chat service.
type BackendConfig struct {
	// BaseURL of the chat service; http:// is assumed without a scheme
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`
	// Accept header sent on stream requests
	Accept string `toml:"accept" json:"accept" yaml:"accept"`
	// ConnectTimeoutSecs bounds dialing; streams themselves never time out
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs" yaml:"connect_timeout_secs"`
}

// ChatConfig holds conversation behavior.
type ChatConfig struct {
	WelcomeMessage  string `toml:"welcome_message" json:"welcome_message" yaml:"welcome_message"`
	FallbackMessage string `toml:"fallback_message" json:"fallback_message" yaml:"fallback_message"`
	// FreshMillis before new messages lose their highlight; 0 disables
	FreshMillis   int `toml:"fresh_millis" json:"fresh_millis" yaml:"fresh_millis"`
	TitleMaxRunes int `toml:"title_max_runes" json:"title_max_runes" yaml:"title_max_runes"`
}

// IdentityConfig controls the current-user lookup.
type IdentityConfig struct {
	Enabled   bool `toml:"enabled" json:"enabled" yaml:"enabled"`
	CacheSecs int  `toml:"cache_secs" json:"cache_secs" yaml:"cache_secs"`
	Retries   int  `toml:"retries" json:"retries" yaml:"retries"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `toml:"level" json:"level" yaml:"level"`
	// Encoding: console or json
	Encoding string `toml:"encoding" json:"encoding" yaml:"encoding"`
	// File receives log output; empty means stderr
	File string `toml:"file" json:"file" yaml:"file"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme: auto, dark, light
	Theme          string `toml:"theme" json:"theme" yaml:"theme"`
	SidebarWidth   int    `toml:"sidebar_width" json:"sidebar_width" yaml:"sidebar_width"`
	RenderMarkdown bool   `toml:"render_markdown" json:"render_markdown" yaml:"render_markdown"`
	// MaxFPS caps redraws while streaming
	MaxFPS int `toml:"max_fps" json:"max_fps" yaml:"max_fps"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultBaseURL         = "http://127.0.0.1:8000"
	DefaultAccept          = "application/x-ndjson, text/event-stream;q=0.9, application/json;q=0.8"
	DefaultWelcomeMessage  = "Hello! I'm your AI assistant. How can I help you today?"
	DefaultFallbackMessage = "Sorry, I encountered an error while generating a response. Please try again."
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:            DefaultBaseURL,
			Accept:             DefaultAccept,
			ConnectTimeoutSecs: 10,
		},
		Chat: ChatConfig{
			WelcomeMessage:  DefaultWelcomeMessage,
			FallbackMessage: DefaultFallbackMessage,
			FreshMillis:     500,
			TitleMaxRunes:   50,
		},
		Identity: IdentityConfig{
			Enabled:   true,
			CacheSecs: 300,
			Retries:   1,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		UI: UIConfig{
			Theme:          "auto",
			SidebarWidth:   28,
			RenderMarkdown: true,
			MaxFPS:         30,
		},
	}
}

// ConnectTimeout returns the dial timeout as a duration.
func (b BackendConfig) ConnectTimeout() time.Duration {
	return time.Duration(b.ConnectTimeoutSecs) * time.Second
}

// FreshDuration returns how long messages stay fresh; 0 disables clearing.
func (c ChatConfig) FreshDuration() time.Duration {
	if c.FreshMillis <= 0 {
		return 0
	}
	return time.Duration(c.FreshMillis) * time.Millisecond
}

// CacheTTL returns the identity cache lifetime.
func (i IdentityConfig) CacheTTL() time.Duration {
	return time.Duration(i.CacheSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the streamchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".streamchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SearchPaths returns the candidate config files in precedence order.
func SearchPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.json"),
	}, nil
}

// DefaultLogFile returns ~/.streamchat/streamchat.log.
func DefaultLogFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "streamchat.log"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads configuration from path or, when path is empty, from the
// first existing file in SearchPaths. With no file the defaults are used.
// Environment overrides are applied last, then the result is validated.
// The returned path is the file that was read, or "".
func Load(path string) (*Config, string, error) {
	if path != "" {
		cfg, err := LoadFromPath(path)
		return cfg, path, err
	}

	paths, err := SearchPaths()
	if err == nil {
		for _, p := range paths {
			if _, statErr := os.Stat(p); statErr == nil {
				cfg, err := LoadFromPath(p)
				return cfg, p, err
			}
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, "", nil
}

// LoadFromPath loads configuration from a specific file with full
// validation. The format follows the file extension; anything other than
// .json, .yaml or .yml is read as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := Decode(cfg, data, FormatFor(path)); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Format is a config file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the format from the file extension; TOML is the default.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Decode parses data into cfg. Keys absent from data keep cfg's values.
func Decode(cfg *Config, data []byte, format Format) error {
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to decode TOML: %w", err)
		}
	}
	return nil
}

// SetDefaults fills any remaining zero values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	// Backend
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	c.Backend.BaseURL = util.NormalizeBaseURL(c.Backend.BaseURL, DefaultBaseURL)
	if c.Backend.Accept == "" {
		c.Backend.Accept = defaults.Backend.Accept
	}
	if c.Backend.ConnectTimeoutSecs == 0 {
		c.Backend.ConnectTimeoutSecs = defaults.Backend.ConnectTimeoutSecs
	}

	// Chat
	if c.Chat.WelcomeMessage == "" {
		c.Chat.WelcomeMessage = defaults.Chat.WelcomeMessage
	}
	if c.Chat.FallbackMessage == "" {
		c.Chat.FallbackMessage = defaults.Chat.FallbackMessage
	}
	if c.Chat.TitleMaxRunes == 0 {
		c.Chat.TitleMaxRunes = defaults.Chat.TitleMaxRunes
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = defaults.Log.Encoding
	}

	// UI
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = defaults.UI.SidebarWidth
	}
	if c.UI.MaxFPS == 0 {
		c.UI.MaxFPS = defaults.UI.MaxFPS
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with 0600 permissions. The
// write is atomic so a crash never leaves a truncated file.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# streamchat configuration file")
	fmt.Fprintln(&buf, "# Generated by streamchat - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns all problems at once as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Host == "" {
		errs = append(errs, ValidationError{Field: "backend.base_url", Message: fmt.Sprintf("invalid URL %q", c.Backend.BaseURL)})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{Field: "backend.base_url", Message: "scheme must be http or https"})
	}
	if c.Backend.ConnectTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "backend.connect_timeout_secs", Message: "must not be negative"})
	}

	if c.Chat.FreshMillis < 0 {
		errs = append(errs, ValidationError{Field: "chat.fresh_millis", Message: "must not be negative"})
	}
	if c.Chat.TitleMaxRunes < 1 || c.Chat.TitleMaxRunes > 500 {
		errs = append(errs, ValidationError{Field: "chat.title_max_runes", Message: "must be between 1 and 500"})
	}

	if c.Identity.CacheSecs < 0 {
		errs = append(errs, ValidationError{Field: "identity.cache_secs", Message: "must not be negative"})
	}
	if c.Identity.Retries < 0 || c.Identity.Retries > 5 {
		errs = append(errs, ValidationError{Field: "identity.retries", Message: "must be between 0 and 5"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q (use debug, info, warn or error)", c.Log.Level)})
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{Field: "log.encoding", Message: "must be console or json"})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{Field: "ui.theme", Message: fmt.Sprintf("unknown theme %q (use auto, dark or light)", c.UI.Theme)})
	}
	if c.UI.SidebarWidth < 12 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{Field: "ui.sidebar_width", Message: "must be between 12 and 80"})
	}
	if c.UI.MaxFPS < 1 || c.UI.MaxFPS > 120 {
		errs = append(errs, ValidationError{Field: "ui.max_fps", Message: "must be between 1 and 120"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - STREAMCHAT_BASE_URL: overrides backend.base_url
//   - STREAMCHAT_LOG_LEVEL: overrides log.level
//   - STREAMCHAT_THEME: overrides ui.theme
//   - STREAMCHAT_NO_IDENTITY: set to "1" or "true" to skip the user lookup
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("STREAMCHAT_BASE_URL"); base != "" {
		c.Backend.BaseURL = base
	}
	if level := os.Getenv("STREAMCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if theme := os.Getenv("STREAMCHAT_THEME"); theme != "" {
		c.UI.Theme = strings.ToLower(theme)
	}
	if noID := os.Getenv("STREAMCHAT_NO_IDENTITY"); noID != "" {
		if noID == "1" || strings.ToLower(noID) == "true" {
			c.Identity.Enabled = false
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(strVal == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every configuration key in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := section.Tag.Get("toml")
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
