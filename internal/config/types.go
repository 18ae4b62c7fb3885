package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	DSN            string                `yaml:"dsn"`
	Database       DatabaseConfig        `yaml:"database"`
	RedisURL       string                `yaml:"redis_url"`
	JWTSecret      string                `yaml:"jwt_secret"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Storage        StorageConfig         `yaml:"storage"`
	Moderation     ModerationConfig      `yaml:"moderation"`
	Queue          QueueConfig           `yaml:"queue"`
	Webhook        WebhookConfig         `yaml:"webhook"`
	Providers      map[string]APIProvider `yaml:"providers"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

// StorageConfig selects and configures the blob storage backend.
type StorageConfig struct {
	Driver        string   `yaml:"driver"` // "s3" | "local"
	BaseDir       string   `yaml:"base_dir"`
	PublicBaseURL string   `yaml:"public_base_url"`
	S3            S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
	PathStyle       bool   `yaml:"path_style"`
}

// ModerationConfig configures the third-party image safety classifier.
type ModerationConfig struct {
	Enable    bool    `yaml:"enable"`
	APIURL    string  `yaml:"api_url"`
	APIKey    string  `yaml:"api_key"`
	Threshold float64 `yaml:"threshold"`
	TimeoutMS int     `yaml:"timeout_ms"`
}

// QueueConfig configures the background job workers and the default
// retry policy applied to job types that do not override it.
type QueueConfig struct {
	Workers        int `yaml:"workers"`
	Tries          int `yaml:"tries"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

// WebhookConfig holds dispatcher-wide defaults; per-subscription values
// stored on the subscription row take precedence.
type WebhookConfig struct {
	RetryCount     int `yaml:"retry_count"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// APIProvider describes one third-party travel/OAuth API.
// Loaded once at startup and treated as immutable afterwards.
type APIProvider struct {
	Key          string `yaml:"key"`
	Secret       string `yaml:"secret"`
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
	TimeoutMS    int    `yaml:"timeout_ms"`
	RetryTimes   int    `yaml:"retry_times"`
	RetrySleepMS int    `yaml:"retry_sleep_ms"`
	Enabled      *bool  `yaml:"enabled"`
}

// IsEnabled reports whether the provider can be used at all: the flag must
// not be explicitly off and an api key must be present.
func (p APIProvider) IsEnabled() bool {
	if p.Enabled != nil && !*p.Enabled {
		return false
	}
	return p.Key != ""
}
