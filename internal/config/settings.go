package config

import (
	"errors"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultAPIBase      = "https://api.vibe.app"
	defaultOrigin       = "cli"
	defaultDevice       = "cli"
	defaultModel        = "sonnet"
	defaultHistoryPage  = 20
	defaultLoggingLevel = "info"
)

var defaultModels = []string{"sonnet", "opus"}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Chat    ChatConfig    `toml:"chat"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	APIBase    string `toml:"api_base"`
	SocketBase string `toml:"socket_base"`
	Token      string `toml:"token"`
	UserID     string `toml:"user_id"`
	Origin     string `toml:"origin"`
}

type ChatConfig struct {
	DefaultModel string   `toml:"default_model"`
	Models       []string `toml:"models"`
	PageSize     int      `toml:"page_size"`
	Device       string   `toml:"device"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			APIBase: defaultAPIBase,
			Origin:  defaultOrigin,
		},
		Chat: ChatConfig{
			DefaultModel: defaultModel,
			Models:       append([]string{}, defaultModels...),
			PageSize:     defaultHistoryPage,
			Device:       defaultDevice,
		},
		Logging: LoggingConfig{
			Level: defaultLoggingLevel,
		},
	}
}

// Load reads the settings file and applies environment overrides. A missing
// file yields the defaults.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	cfg, err := loadFromPath(path)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VIBE_API_BASE"); v != "" {
		c.Server.APIBase = v
	}
	if v := os.Getenv("VIBE_SOCKET_BASE"); v != "" {
		c.Server.SocketBase = v
	}
	if v := os.Getenv("VIBE_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("VIBE_USER_ID"); v != "" {
		c.Server.UserID = v
	}
	if v := os.Getenv("VIBE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c Config) APIBaseURL() string {
	base := strings.TrimSpace(c.Server.APIBase)
	if base == "" {
		base = defaultAPIBase
	}
	return strings.TrimRight(base, "/")
}

// SocketBaseURL returns the websocket endpoint root, derived from the API
// base when not set explicitly.
func (c Config) SocketBaseURL() string {
	base := strings.TrimSpace(c.Server.SocketBase)
	if base != "" {
		return strings.TrimRight(base, "/")
	}
	api := c.APIBaseURL()
	switch {
	case strings.HasPrefix(api, "https://"):
		return "wss://" + strings.TrimPrefix(api, "https://")
	case strings.HasPrefix(api, "http://"):
		return "ws://" + strings.TrimPrefix(api, "http://")
	}
	return api
}

// Token returns the configured token, falling back to the token file.
func (c Config) Token() string {
	if token := strings.TrimSpace(c.Server.Token); token != "" {
		return token
	}
	path, err := TokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// UserID identifies the account on socket frames and routing-key requests.
func (c Config) UserID() string {
	return strings.TrimSpace(c.Server.UserID)
}

func (c Config) Origin() string {
	if origin := strings.TrimSpace(c.Server.Origin); origin != "" {
		return origin
	}
	return defaultOrigin
}

func (c Config) Device() string {
	if device := strings.TrimSpace(c.Chat.Device); device != "" {
		return device
	}
	return defaultDevice
}

func (c Config) DefaultModel() string {
	if model := strings.TrimSpace(c.Chat.DefaultModel); model != "" {
		return model
	}
	return defaultModel
}

func (c Config) Models() []string {
	models := normalizedList(c.Chat.Models)
	if len(models) == 0 {
		models = append([]string{}, defaultModels...)
	}
	return models
}

func (c Config) HistoryPageSize() int {
	if c.Chat.PageSize > 0 {
		return c.Chat.PageSize
	}
	return defaultHistoryPage
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return defaultLoggingLevel
	}
	return level
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func normalizedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
