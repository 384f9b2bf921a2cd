// Package config handles configuration for grantchat.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultAPIURL is used when neither the environment nor the config file set a base URL
	DefaultAPIURL = "http://127.0.0.1:8000/api"

	// EnvAPIURL overrides the configured backend base URL
	EnvAPIURL = "GRANTCHAT_API_URL"

	// EnvHome overrides the configuration directory (defaults to ~/.grantchat)
	EnvHome = "GRANTCHAT_HOME"

	configFileName = "config.toml"
)

// History saving modes
const (
	SaveHistoryOff    = "off"
	SaveHistoryLocal  = "local"
	SaveHistoryRemote = "remote"
	SaveHistoryBoth   = "both"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `toml:"style"`              // glamour style name or path to JSON theme
	EnableEmoji      bool   `toml:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `toml:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `toml:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `toml:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// APIURL is the chat backend base URL, e.g. http://127.0.0.1:8000/api
	APIURL   string `toml:"api_url"`
	TUITheme string `toml:"tui_theme"`
	// TypingDelayMS is the minimum time the typing indicator stays on screen
	// before a reply replaces it.
	TypingDelayMS int `toml:"typing_delay_ms"`
	// SaveHistory selects where a conversation is persisted before it is cleared:
	// "off", "local", "remote" or "both".
	SaveHistory          string         `toml:"save_history"`
	HistoryRetentionDays int            `toml:"history_retention_days"`
	CopyToClipboard      bool           `toml:"copy_to_clipboard"`
	LogLevel             string         `toml:"log_level"`
	Markdown             MarkdownConfig `toml:"markdown"`

	// Source is the file the configuration was read from (empty for defaults)
	Source string `toml:"-"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		APIURL:               DefaultAPIURL,
		TUITheme:             "tokyonight",
		TypingDelayMS:        500,
		SaveHistory:          SaveHistoryLocal,
		HistoryRetentionDays: 30,
		CopyToClipboard:      false,
		LogLevel:             "info",
		Markdown:             DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvHome)); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".grantchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the auth state and credentials file
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFileName), nil
}

// LoadConfig loads the configuration from disk and applies environment overrides
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			cfg.normalize()
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		cfg = DefaultConfig()
		applyEnv(&cfg)
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Source = configPath

	applyEnv(&cfg)
	cfg.normalize()
	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(configDir, configFileName)
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv(EnvAPIURL)); env != "" {
		cfg.APIURL = env
	}
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.TypingDelayMS < 0 {
		c.TypingDelayMS = 0
	}
	if !validSaveMode(c.SaveHistory) {
		c.SaveHistory = SaveHistoryLocal
	}
	if c.HistoryRetentionDays < 0 {
		c.HistoryRetentionDays = 0
	}
}

func validSaveMode(mode string) bool {
	switch mode {
	case SaveHistoryOff, SaveHistoryLocal, SaveHistoryRemote, SaveHistoryBoth:
		return true
	}
	return false
}

// Keys returns the settable configuration keys, in display order
func Keys() []string {
	return []string{
		"api_url",
		"tui_theme",
		"typing_delay_ms",
		"save_history",
		"history_retention_days",
		"copy_to_clipboard",
		"log_level",
		"markdown.style",
	}
}

// Set assigns a value to a configuration key using its TOML name
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)

	switch key {
	case "api_url":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("api_url must start with http:// or https://")
		}
		c.APIURL = strings.TrimRight(value, "/")
	case "tui_theme":
		c.TUITheme = value
	case "typing_delay_ms":
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 0 {
			return fmt.Errorf("typing_delay_ms must be a non-negative integer")
		}
		c.TypingDelayMS = ms
	case "save_history":
		if !validSaveMode(value) {
			return fmt.Errorf("save_history must be one of: off, local, remote, both")
		}
		c.SaveHistory = value
	case "history_retention_days":
		days, err := strconv.Atoi(value)
		if err != nil || days < 0 {
			return fmt.Errorf("history_retention_days must be a non-negative integer")
		}
		c.HistoryRetentionDays = days
	case "copy_to_clipboard":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("copy_to_clipboard must be true or false")
		}
		c.CopyToClipboard = b
	case "log_level":
		c.LogLevel = value
	case "markdown.style":
		c.Markdown.Style = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return nil
}

// Get returns the string form of a configuration key
func (c Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "tui_theme":
		return c.TUITheme, nil
	case "typing_delay_ms":
		return strconv.Itoa(c.TypingDelayMS), nil
	case "save_history":
		return c.SaveHistory, nil
	case "history_retention_days":
		return strconv.Itoa(c.HistoryRetentionDays), nil
	case "copy_to_clipboard":
		return strconv.FormatBool(c.CopyToClipboard), nil
	case "log_level":
		return c.LogLevel, nil
	case "markdown.style":
		return c.Markdown.Style, nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}
