package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Transport modes.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Google    GoogleConfig    `yaml:"google"`
	Trips     TripsConfig     `yaml:"trips"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

// AuthConfig holds the bearer token required on /mcp. Empty disables
// authentication.
type AuthConfig struct {
	Token string `yaml:"token"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets up the slog handler. A Path log is trimmed to its newest
// lines once it grows past MaxSizeMB.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // text or json
	Path      string `yaml:"path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// GoogleConfig enables federated sign-in when ClientID is set.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	ListenAddr   string `yaml:"listen_addr"`
	UserInfoURL  string `yaml:"userinfo_url"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != ""
}

type TripsConfig struct {
	ReloadAfterDelete bool `yaml:"reload_after_delete"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: TransportHTTP,
		},
		DB: DBConfig{
			Path: "trips.db",
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 6,
		},
		Google: GoogleConfig{
			ListenAddr: "127.0.0.1:0",
		},
		Trips: TripsConfig{
			ReloadAfterDelete: true,
		},
	}

	if path := os.Getenv("TRIPS_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("TRIPS_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TRIPS_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRIPS_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("TRIPS_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if token := os.Getenv("TRIPS_AUTH_TOKEN"); token != "" {
		cfg.Auth.Token = token
	}
	if dbPath := os.Getenv("TRIPS_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TRIPS_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("TRIPS_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if format := os.Getenv("TRIPS_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
	if size := os.Getenv("TRIPS_LOG_MAX_SIZE_MB"); size != "" {
		v, err := strconv.Atoi(size)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRIPS_LOG_MAX_SIZE_MB: %w", err)
		}
		cfg.Log.MaxSizeMB = v
	}
	if id := os.Getenv("TRIPS_GOOGLE_CLIENT_ID"); id != "" {
		cfg.Google.ClientID = id
	}
	if secret := os.Getenv("TRIPS_GOOGLE_CLIENT_SECRET"); secret != "" {
		cfg.Google.ClientSecret = secret
	}
	if addr := os.Getenv("TRIPS_GOOGLE_LISTEN_ADDR"); addr != "" {
		cfg.Google.ListenAddr = addr
	}
	if reload := os.Getenv("TRIPS_RELOAD_AFTER_DELETE"); reload != "" {
		v, err := strconv.ParseBool(reload)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRIPS_RELOAD_AFTER_DELETE: %w", err)
		}
		cfg.Trips.ReloadAfterDelete = v
	}

	switch cfg.Transport.Mode {
	case TransportHTTP, TransportStdio:
	default:
		return Config{}, fmt.Errorf("invalid transport mode %q", cfg.Transport.Mode)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("invalid log format %q", cfg.Log.Format)
	}
	if cfg.Log.MaxSizeMB < 1 {
		return Config{}, fmt.Errorf("log max size must be at least 1 MB, got %d", cfg.Log.MaxSizeMB)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
