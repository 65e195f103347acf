package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configPath, applies defaults and FOOTPRINT_* environment overrides.
// A missing file at the default path yields the defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		content = nil
	}

	cfg, err := Parse(content, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content over the defaults. lookupEnv supplies overrides; nil skips them.
func Parse(content []byte, lookupEnv func(string) (string, bool)) (*AppConfig, error) {
	cfg := defaultAppConfig()

	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}

	if lookupEnv != nil {
		if err := applyEnv(&cfg, lookupEnv); err != nil {
			return nil, err
		}
	}

	normalize(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Store: StoreConfig{
			Driver: DriverMySQL,
		},
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Mongo: MongoRuntimeConfig{
			URI:      defaultMongoURI,
			Database: defaultMongoDatabase,
			Timeout:  defaultMongoTimeout,
		},
		Redis: RedisRuntimeConfig{
			Enabled: true,
			Host:    defaultRedisHost,
			Port:    defaultRedisPort,
			DB:      defaultRedisDB,
		},
		RateLimit: RateLimitConfig{
			Max:    defaultRateLimitMax,
			Window: defaultRateLimitWindow,
		},
		Analytics: AnalyticsConfig{
			StaleAfter:      defaultStaleAfter,
			DuplicateWindow: defaultDuplicateWindow,
			RealtimeWindow:  defaultRealtimeWindow,
			DedupWindow:     defaultDedupWindow,
			CleanupInterval: defaultCleanupInterval,
			CleanupEnabled:  true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    defaultMetricsPath,
		},
	}
}

func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	if v, ok := get(EnvDSN); ok {
		cfg.Database.DSN = v
	}
	if v, ok := get(EnvMongoURI); ok {
		cfg.Mongo.URI = v
	}
	if v, ok := get(EnvRedisURL); ok {
		cfg.Redis.URL = v
	}
	if v, ok := get(EnvJWTSecret); ok {
		cfg.JWTSecret = v
	}
	return nil
}

func normalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.TrustedProxies = normalizeOrigins(cfg.TrustedProxies)
	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	cfg.Store.Driver = normalizeDriver(cfg.Store.Driver)
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Mongo = normalizeMongoConfig(cfg.Mongo)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Analytics = normalizeAnalyticsConfig(cfg.Analytics)
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = defaultRateLimitWindow
	}
	if p := strings.TrimSpace(cfg.Metrics.Path); p == "" {
		cfg.Metrics.Path = defaultMetricsPath
	} else if !strings.HasPrefix(p, "/") {
		cfg.Metrics.Path = "/" + p
	} else {
		cfg.Metrics.Path = p
	}

	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Store.Driver {
	case DriverMySQL, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("invalid store.driver %q, expected mysql, mongo or memory", c.Store.Driver)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.RateLimit.Max < 0 {
		return fmt.Errorf("invalid rate_limit.max %d, expected >= 0", c.RateLimit.Max)
	}
	if c.Timezone != "" {
		if _, err := ParseTimezone(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// Location returns the configured timezone, falling back to the process local zone.
func (c *AppConfig) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.Local
	}
	loc, err := ParseTimezone(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ParseTimezone accepts an IANA zone name or a fixed UTC offset such as +08:00.
func ParseTimezone(raw string) (*time.Location, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return time.Local, nil
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}
	if len(tz) == 6 && (tz[0] == '+' || tz[0] == '-') && tz[3] == ':' {
		h, errH := strconv.Atoi(tz[1:3])
		m, errM := strconv.Atoi(tz[4:6])
		if errH == nil && errM == nil && h <= 23 && m <= 59 {
			offset := h*3600 + m*60
			if tz[0] == '-' {
				offset = -offset
			}
			return time.FixedZone(tz, offset), nil
		}
	}
	return nil, errors.New("expect IANA zone (e.g. Asia/Shanghai) or UTC offset (e.g. +08:00)")
}
