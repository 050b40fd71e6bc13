package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は環境変数による上書きで使用する接頭辞です。
const EnvPrefix = "LICENSE_"

const (
	defaultRequestTimeout  = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheOpTimeout  = 200 * time.Millisecond
	defaultCacheHold       = 15 * time.Second
	defaultRateLimitPeriod = 60 * time.Second
	defaultRateLimitCount  = 100
	defaultServiceName     = "business-license-api"
)

var defaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Cache     CacheConfig     `yaml:"cache" envPrefix:"CACHE_"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	CORS      CORSConfig      `yaml:"cors" envPrefix:"CORS_"`
}

// ServerConfig は gRPC / HTTP サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
	HTTPAddr           string        `yaml:"http_addr" env:"HTTP_ADDR"`
	RequestTimeout     time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	RequestTimeoutRaw  string        `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"HOST"`
	Port               int           `yaml:"port" env:"PORT"`
	User               string        `yaml:"user" env:"USER"`
	Password           string        `yaml:"password" env:"PASSWORD"`
	Name               string        `yaml:"name" env:"NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
}

// CacheConfig はキャッシュ層に関する設定です。RedisAddr が空の場合は MemoryFallback に従います。
// メモリキャッシュの無効化は自プロセスにしか届かないため、MemoryFallback は単一インスタンス構成でのみ有効にしてください。
// InvalidationHold は無効化後にキーへの再書き込みを拒否する期間で、読み込み中の古いレコードによる上書きを防ぎます。
type CacheConfig struct {
	RedisAddr           string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	Password            string        `yaml:"password" env:"PASSWORD"`
	DB                  int           `yaml:"db" env:"DB"`
	PoolSize            int           `yaml:"pool_size" env:"POOL_SIZE"`
	MemoryFallback      bool          `yaml:"memory_fallback" env:"MEMORY_FALLBACK"`
	TTL                 time.Duration `yaml:"-"`
	OpTimeout           time.Duration `yaml:"-"`
	InvalidationHold    time.Duration `yaml:"-"`
	TTLRaw              string        `yaml:"ttl" env:"TTL"`
	OpTimeoutRaw        string        `yaml:"op_timeout" env:"OP_TIMEOUT"`
	InvalidationHoldRaw string        `yaml:"invalidation_hold" env:"INVALIDATION_HOLD"`
}

// RateLimitConfig はクライアント単位のレート制限設定です。Requests が 0 以下の場合は無効です。
type RateLimitConfig struct {
	Requests  int           `yaml:"requests" env:"REQUESTS"`
	Period    time.Duration `yaml:"-"`
	PeriodRaw string        `yaml:"period" env:"PERIOD"`
}

// LogConfig はロガー設定です。
type LogConfig struct {
	Level     string `yaml:"level" env:"LEVEL"`
	Component string `yaml:"component" env:"COMPONENT"`
}

// TelemetryConfig はトレース送信設定です。OTLPEndpoint が空の場合は無効です。
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME"`
}

// CORSConfig は REST API の CORS 設定です。
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load は指定されたパスから設定ファイルを読み込み、LICENSE_ で始まる環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Cache.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.RateLimit.validateAndNormalize(); err != nil {
		return err
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = append([]string(nil), defaultAllowedOrigins...)
	}

	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	timeout, err := parseDurationDefault(s.RequestTimeoutRaw, defaultRequestTimeout)
	if err != nil {
		return fmt.Errorf("config: server.request_timeout: %w", err)
	}
	s.RequestTimeout = timeout

	shutdown, err := parseDurationDefault(s.ShutdownTimeoutRaw, defaultShutdownTimeout)
	if err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	s.ShutdownTimeout = shutdown

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationDefault(d.ConnMaxLifetimeRaw, 0)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationDefault(d.ConnMaxIdleTimeRaw, 0)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (c *CacheConfig) validateAndNormalize() error {
	ttl, err := parseDurationDefault(c.TTLRaw, defaultCacheTTL)
	if err != nil {
		return fmt.Errorf("config: cache.ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive")
	}
	c.TTL = ttl

	opTimeout, err := parseDurationDefault(c.OpTimeoutRaw, defaultCacheOpTimeout)
	if err != nil {
		return fmt.Errorf("config: cache.op_timeout: %w", err)
	}
	c.OpTimeout = opTimeout

	hold, err := parseDurationDefault(c.InvalidationHoldRaw, defaultCacheHold)
	if err != nil {
		return fmt.Errorf("config: cache.invalidation_hold: %w", err)
	}
	if hold < 0 {
		return fmt.Errorf("config: cache.invalidation_hold must not be negative")
	}
	c.InvalidationHold = hold

	if c.DB < 0 {
		return fmt.Errorf("config: cache.db must not be negative")
	}

	return nil
}

func (r *RateLimitConfig) validateAndNormalize() error {
	if r.Requests == 0 && r.PeriodRaw == "" {
		r.Requests = defaultRateLimitCount
	}

	period, err := parseDurationDefault(r.PeriodRaw, defaultRateLimitPeriod)
	if err != nil {
		return fmt.Errorf("config: rate_limit.period: %w", err)
	}
	if period <= 0 {
		return fmt.Errorf("config: rate_limit.period must be positive")
	}
	r.Period = period

	return nil
}

// Enabled はレート制限が有効かどうかを返します。
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0
}

// Enabled は Redis もしくはメモリキャッシュが利用されるかどうかを返します。
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != "" || c.MemoryFallback
}

func parseDurationDefault(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
