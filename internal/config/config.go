package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Log          LogConfig          `yaml:"log"`
	Dashboard    DashboardConfig    `yaml:"dashboard"`
	Retention    RetentionConfig    `yaml:"retention"`
	Admin        AdminConfig        `yaml:"admin"`
	LDAP         LDAPConfig         `yaml:"ldap"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Notification NotificationConfig `yaml:"notification"`
}

type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   string `yaml:"port"`
	Mode   string `yaml:"mode"` // debug, release, test
	WebURL string `yaml:"web_url"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite, mysql, postgres
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite file

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// RedisConfig backs both the cache and the notification queue.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level              string        `yaml:"level"`
	SQL                bool          `yaml:"sql"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

type DashboardConfig struct {
	DefaultBranch string `yaml:"default_branch"`
	// Base URL for "More Info" links in chat messages.
	MoreInfoURL string `yaml:"more_info_url"`
	// Base URL for "More Info" links in pull request comments.
	PRCommentMoreInfoURL string `yaml:"pr_comment_more_info_url"`
	// Files at or below NoCoverageThreshold count as uncovered, files at or
	// above GoodCoverageThreshold as well covered.
	NoCoverageThreshold   float64 `yaml:"no_coverage_threshold"`
	GoodCoverageThreshold float64 `yaml:"good_coverage_threshold"`
}

type RetentionConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Days     int    `yaml:"days"`
	Schedule string `yaml:"schedule"` // cron expression
}

type AdminConfig struct {
	// Password is either a bcrypt hash or a plain value.
	Password     string `yaml:"password"`
	SessionHours int    `yaml:"session_hours"`
	JWTSecret    string `yaml:"jwt_secret"`
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
	// AdminGroup, when set, must appear in the user's memberOf values.
	AdminGroup string `yaml:"admin_group"`
}

type RateLimitConfig struct {
	UploadRPS   float64 `yaml:"upload_rps"`
	UploadBurst int     `yaml:"upload_burst"`
}

type NotificationConfig struct {
	QueueConcurrency int           `yaml:"queue_concurrency"`
	GitHubAPIURL     string        `yaml:"github_api_url"`
	Timeout          time.Duration `yaml:"timeout"`
	// IntakeToken is the shared secret CI runners send in X-Stockyard-Token
	// when posting build events. Without it only admin sessions may post.
	IntakeToken string `yaml:"intake_token"`
}

// Load reads configPath over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:   "0.0.0.0",
			Port:   "7777",
			Mode:   "release",
			WebURL: "http://localhost:7777",
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			Path:         "data/stockyard.db",
			Port:         5432,
			Name:         "stockyard",
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
		Log: LogConfig{
			Level:              "info",
			SlowQueryThreshold: 200 * time.Millisecond,
		},
		Dashboard: DashboardConfig{
			DefaultBranch:         "main",
			GoodCoverageThreshold: 0.9,
		},
		Retention: RetentionConfig{
			Enabled:  true,
			Days:     30,
			Schedule: "0 3 * * *",
		},
		Admin: AdminConfig{
			SessionHours: 24,
			JWTSecret:    "stockyard-secret-key-change-in-production",
		},
		LDAP: LDAPConfig{
			Port:       389,
			UserFilter: "(uid=%s)",
		},
		RateLimit: RateLimitConfig{
			UploadRPS:   10,
			UploadBurst: 20,
		},
		Notification: NotificationConfig{
			QueueConcurrency: 5,
			GitHubAPIURL:     "https://api.github.com",
			Timeout:          10 * time.Second,
		},
	}
}

// MoreInfoURL falls back to the web URL when no dedicated link base is set.
func (c *Config) MoreInfoURL() string {
	if c.Dashboard.MoreInfoURL != "" {
		return c.Dashboard.MoreInfoURL
	}
	return c.Server.WebURL
}

func (c *Config) PRCommentMoreInfoURL() string {
	if c.Dashboard.PRCommentMoreInfoURL != "" {
		return c.Dashboard.PRCommentMoreInfoURL
	}
	return c.MoreInfoURL()
}

// ConnectionString builds the driver DSN unless one is configured verbatim.
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			d.Host, d.Port, d.User, d.Password, d.Name)
	default:
		return d.Path
	}
}

func (c *Config) overrideFromEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("SERVER_HOST", &c.Server.Host)
	setString("PORT", &c.Server.Port)
	setString("GIN_MODE", &c.Server.Mode)
	setString("WEB_URL", &c.Server.WebURL)

	setString("DB_DRIVER", &c.Database.Driver)
	setString("DB_DSN", &c.Database.DSN)
	setString("DB_HOST", &c.Database.Host)
	setInt("DB_PORT", &c.Database.Port)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.Name)
	setString("DB_PATH", &c.Database.Path)

	setString("LOG_LEVEL", &c.Log.Level)
	setString("DEFAULT_BRANCH", &c.Dashboard.DefaultBranch)
	setString("ADMIN_PASSWORD", &c.Admin.Password)
	setString("JWT_SECRET", &c.Admin.JWTSecret)
	setInt("RETENTION_DAYS", &c.Retention.Days)
	setString("NOTIFICATION_INTAKE_TOKEN", &c.Notification.IntakeToken)

	// redis://:password@host:port/db
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.LastIndex(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		if db, err := strconv.Atoi(url[slashIdx+1:]); err == nil {
			c.Redis.DB = db
		}
		url = url[:slashIdx]
	}

	c.Redis.Addr = url
}
