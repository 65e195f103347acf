package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	TrustedProxies []string              `yaml:"trusted_proxies"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	Store          StoreConfig           `yaml:"store"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Mongo          MongoRuntimeConfig    `yaml:"mongo"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	RateLimit      RateLimitConfig       `yaml:"rate_limit"`
	Analytics      AnalyticsConfig       `yaml:"analytics"`
	Metrics        MetricsConfig         `yaml:"metrics"`

	// Derived after loading.
	DSN      string `yaml:"-"`
	RedisURL string `yaml:"-"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // mysql | mongo | memory
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type MongoRuntimeConfig struct {
	URI        string        `yaml:"uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type RedisRuntimeConfig struct {
	Enabled  bool              `yaml:"enabled"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

// RateLimitConfig bounds ingestion requests per client IP. Max 0 disables it.
type RateLimitConfig struct {
	Max    int64         `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// AnalyticsConfig holds the visit windows and the retention schedule.
type AnalyticsConfig struct {
	StaleAfter      time.Duration `yaml:"stale_after"`
	DuplicateWindow time.Duration `yaml:"duplicate_window"`
	RealtimeWindow  time.Duration `yaml:"realtime_window"`
	DedupWindow     time.Duration `yaml:"dedup_window"` // advertised to trackers
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	CleanupEnabled  bool          `yaml:"cleanup_enabled"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}
