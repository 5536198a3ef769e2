package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	LDAP      LDAPConfig      `yaml:"ldap"`
	Bot       BotConfig       `yaml:"bot"`
	Redis     RedisConfig     `yaml:"redis"`
	Admin     AdminConfig     `yaml:"admin"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Mode     string `yaml:"mode"` // debug, release, test
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

type LDAPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	BaseDN       string `yaml:"base_dn"`
	BindDN       string `yaml:"bind_dn"`
	BindPassword string `yaml:"bind_password"`
	UserFilter   string `yaml:"user_filter"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// BotConfig points at the OneBot v11 endpoints of the chat platform.
// APIURL is the HTTP API (send_group_msg etc.), WSURL the forward
// WebSocket that delivers group message events.
type BotConfig struct {
	APIURL         string `yaml:"api_url"`
	WSURL          string `yaml:"ws_url"`
	AccessToken    string `yaml:"access_token"`
	SendTimeoutSec int    `yaml:"send_timeout_sec"`
}

// RedisConfig for the optional async notification queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AdminConfig seeds the initial web panel account.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type BroadcastConfig struct {
	DefaultTime string `yaml:"default_time"` // HH:MM, used when a group has no setting row
}

var GlobalConfig *Config

var timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidTimeOfDay reports whether s is a well-formed "HH:MM" broadcast time.
func ValidTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()

	if cfg.Broadcast.DefaultTime == "" {
		cfg.Broadcast.DefaultTime = "10:00"
	}
	if !ValidTimeOfDay(cfg.Broadcast.DefaultTime) {
		return nil, fmt.Errorf("invalid broadcast default_time %q, want HH:MM", cfg.Broadcast.DefaultTime)
	}
	if cfg.Bot.SendTimeoutSec <= 0 {
		cfg.Bot.SendTimeoutSec = 10
	}

	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     "8080",
			Mode:     "debug",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "transprogress.db",
		},
		JWT: JWTConfig{
			Secret:     "trans-progress-secret-change-in-production",
			ExpireHour: 24,
		},
		LDAP: LDAPConfig{
			Enabled:    false,
			Port:       389,
			UserFilter: "(uid=%s)",
		},
		Bot: BotConfig{
			APIURL:         "http://127.0.0.1:3000",
			WSURL:          "ws://127.0.0.1:3001",
			SendTimeoutSec: 10,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "admin123",
		},
		Broadcast: BroadcastConfig{
			DefaultTime: "10:00",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if apiURL := os.Getenv("BOT_API_URL"); apiURL != "" {
		c.Bot.APIURL = apiURL
	}
	if wsURL := os.Getenv("BOT_WS_URL"); wsURL != "" {
		c.Bot.WSURL = wsURL
	}
	if token := os.Getenv("BOT_ACCESS_TOKEN"); token != "" {
		c.Bot.AccessToken = token
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
