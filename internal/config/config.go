package config

import (
	"bytes"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort         = 3000
	defaultEnv          = "development"
	defaultDBHost       = "127.0.0.1"
	defaultDBPort       = 3306
	defaultDBUser       = "root"
	defaultDBPassword   = "password"
	defaultDBName       = "trip_planner"
	defaultDBCharset    = "utf8mb4"
	defaultDBLoc        = "Local"
	defaultRedisURL     = "redis://localhost:6379/0"
	defaultQueueWorkers = 4
	defaultQueueTries   = 3
	defaultQueueBackoff = 5
	defaultHookRetries  = 3
	defaultHookTimeout  = 10

	defaultModerationThreshold = 0.7
	defaultModerationTimeoutMS = 10000

	defaultProviderTimeoutMS    = 10000
	defaultProviderRetryTimes   = 3
	defaultProviderRetrySleepMS = 300
)

// Load reads and validates the YAML config file.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Moderation.Threshold <= 0 || cfg.Moderation.Threshold > 1 {
		return nil, fmt.Errorf("invalid moderation.threshold %v in %q, expected (0, 1]", cfg.Moderation.Threshold, path)
	}
	if cfg.Queue.Workers < 1 {
		return nil, fmt.Errorf("invalid queue.workers %d in %q, expected >= 1", cfg.Queue.Workers, path)
	}
	if cfg.Queue.Tries < 1 {
		return nil, fmt.Errorf("invalid queue.tries %d in %q, expected >= 1", cfg.Queue.Tries, path)
	}
	switch cfg.Storage.Driver {
	case "local", "":
	case "s3":
		if cfg.Storage.S3.Bucket == "" || cfg.Storage.S3.Region == "" {
			return nil, fmt.Errorf("storage.s3 requires bucket and region in %q", path)
		}
	default:
		return nil, fmt.Errorf("unknown storage.driver %q in %q, expected s3 or local", cfg.Storage.Driver, path)
	}
	for name, p := range cfg.Providers {
		if p.IsEnabled() && p.BaseURL == "" {
			return nil, fmt.Errorf("provider %q is enabled but has no base_url in %q", name, path)
		}
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		RedisURL: defaultRedisURL,
		Database: DatabaseConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
			Charset:  defaultDBCharset,
			Loc:      defaultDBLoc,
		},
		Storage: StorageConfig{Driver: "local", BaseDir: "./uploads"},
		Moderation: ModerationConfig{
			Threshold: defaultModerationThreshold,
			TimeoutMS: defaultModerationTimeoutMS,
		},
		Queue: QueueConfig{
			Workers:        defaultQueueWorkers,
			Tries:          defaultQueueTries,
			BackoffSeconds: defaultQueueBackoff,
		},
		Webhook: WebhookConfig{
			RetryCount:     defaultHookRetries,
			TimeoutSeconds: defaultHookTimeout,
		},
	}
}

// applyDefaults fills zero values the YAML decode may have cleared and
// normalizes per-provider retry settings.
func applyDefaults(cfg *AppConfig) {
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.BaseDir == "" {
		cfg.Storage.BaseDir = "./uploads"
	}
	if cfg.Moderation.Threshold == 0 {
		cfg.Moderation.Threshold = defaultModerationThreshold
	}
	if cfg.Moderation.TimeoutMS == 0 {
		cfg.Moderation.TimeoutMS = defaultModerationTimeoutMS
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = defaultQueueWorkers
	}
	if cfg.Queue.Tries == 0 {
		cfg.Queue.Tries = defaultQueueTries
	}
	if cfg.Queue.BackoffSeconds == 0 {
		cfg.Queue.BackoffSeconds = defaultQueueBackoff
	}
	if cfg.Webhook.RetryCount == 0 {
		cfg.Webhook.RetryCount = defaultHookRetries
	}
	if cfg.Webhook.TimeoutSeconds == 0 {
		cfg.Webhook.TimeoutSeconds = defaultHookTimeout
	}
	for name, p := range cfg.Providers {
		if p.TimeoutMS == 0 {
			p.TimeoutMS = defaultProviderTimeoutMS
		}
		if p.RetryTimes == 0 {
			p.RetryTimes = defaultProviderRetryTimes
		}
		if p.RetrySleepMS == 0 {
			p.RetrySleepMS = defaultProviderRetrySleepMS
		}
		cfg.Providers[name] = p
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// DSNValue assembles the MySQL DSN from the flat dsn field or the
// structured database section.
func (c *AppConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.Database.DSN); v != "" {
		return v
	}

	d := c.Database
	host := strings.TrimSpace(d.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := d.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(d.User)
	if user == "" {
		user = defaultDBUser
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(d.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := strings.TrimSpace(d.Loc)
	if loc == "" {
		loc = defaultDBLoc
	}

	params := neturl.Values{}
	params.Set("charset", charset)
	params.Set("parseTime", "true")
	params.Set("loc", loc)

	auth := user
	if d.Password != "" {
		auth += ":" + d.Password
	}
	return fmt.Sprintf("%s@tcp(%s)/%s?%s", auth, net.JoinHostPort(host, strconv.Itoa(port)), name, params.Encode())
}
