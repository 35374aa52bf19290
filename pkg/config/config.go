package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	CheckIn       CheckInConfig
	Occupancy     OccupancyConfig
	Realtime      RealtimeConfig
	GoogleMaps    GoogleMapsConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.CheckIn.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PARKFINDER_APP_ENV" required:"true"`
	Port         string   `envconfig:"PARKFINDER_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"PARKFINDER_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"PARKFINDER_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"PARKFINDER_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PARKFINDER_CORS_ORIGINS" default:"http://localhost:3000"`
	InstanceID   string   `envconfig:"PARKFINDER_INSTANCE_ID"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"PARKFINDER_DB_DSN"`

	LegacyHost     string `envconfig:"PARKFINDER_DB_HOST"`
	LegacyPort     int    `envconfig:"PARKFINDER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARKFINDER_DB_USER"`
	LegacyPassword string `envconfig:"PARKFINDER_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARKFINDER_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARKFINDER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARKFINDER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARKFINDER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARKFINDER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARKFINDER_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PARKFINDER_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
	ConnectTimeout     time.Duration `envconfig:"PARKFINDER_DB_CONNECT_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARKFINDER_REDIS_URL" required:"true"`
	Password     string        `envconfig:"PARKFINDER_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARKFINDER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARKFINDER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARKFINDER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARKFINDER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARKFINDER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARKFINDER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PARKFINDER_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PARKFINDER_JWT_ISSUER" default:"parkfinder"`
	ExpirationMinutes      int    `envconfig:"PARKFINDER_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"PARKFINDER_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PARKFINDER_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PARKFINDER_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PARKFINDER_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PARKFINDER_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PARKFINDER_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PARKFINDER_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PARKFINDER_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PARKFINDER_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PARKFINDER_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PARKFINDER_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PARKFINDER_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig throttles the whole /api surface per client IP.
type RateLimitConfig struct {
	Window      time.Duration `envconfig:"PARKFINDER_RATE_LIMIT_WINDOW" default:"15m"`
	MaxRequests int           `envconfig:"PARKFINDER_RATE_LIMIT_MAX_REQUESTS" default:"1000"`
}

type CheckInConfig struct {
	RadiusMeters float64       `envconfig:"PARKFINDER_CHECKIN_RADIUS_METERS" default:"500"`
	RewardCoins  int64         `envconfig:"PARKFINDER_CHECKIN_REWARD_COINS" default:"10"`
	Cooldown     time.Duration `envconfig:"PARKFINDER_CHECKIN_COOLDOWN" default:"1h"`
}

func (c CheckInConfig) validate() error {
	if c.RadiusMeters <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckInRadius)
	}
	if c.RewardCoins < 0 {
		return fmt.Errorf("%s must not be negative", EnvCheckInReward)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("%s must not be negative", EnvCheckInCool)
	}
	return nil
}

type OccupancyConfig struct {
	Strict bool `envconfig:"PARKFINDER_OCCUPANCY_STRICT" default:"false"`
}

type RealtimeConfig struct {
	Channel      string        `envconfig:"PARKFINDER_REALTIME_CHANNEL" default:"pf:realtime:parking_counts"`
	SendBuffer   int           `envconfig:"PARKFINDER_REALTIME_SEND_BUFFER" default:"32"`
	PingInterval time.Duration `envconfig:"PARKFINDER_REALTIME_PING_INTERVAL" default:"30s"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"PARKFINDER_GOOGLE_MAPS_API_KEY"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PARKFINDER_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
