package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "footprint"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0

	defaultMongoURI      = "mongodb://127.0.0.1:27017"
	defaultMongoDatabase = "footprint"
	defaultMongoTimeout  = 10 * time.Second

	defaultRateLimitMax    = 120
	defaultRateLimitWindow = time.Minute

	defaultStaleAfter      = time.Hour
	defaultDuplicateWindow = 5 * time.Minute
	defaultRealtimeWindow  = 5 * time.Minute
	defaultDedupWindow     = 30 * time.Second
	defaultCleanupInterval = 30 * time.Minute

	defaultMetricsPath = "/metrics"
)

// Store drivers.
const (
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Environment overrides, applied after the YAML file.
const (
	EnvPort      = "FOOTPRINT_PORT"
	EnvDSN       = "FOOTPRINT_DSN"
	EnvMongoURI  = "FOOTPRINT_MONGO_URI"
	EnvRedisURL  = "FOOTPRINT_REDIS_URL"
	EnvJWTSecret = "FOOTPRINT_JWT_SECRET"
)
