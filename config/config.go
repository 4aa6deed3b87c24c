package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Sync      SyncConfig      `mapstructure:"sync"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Crypto    CryptoConfig    `mapstructure:"crypto"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

type StripeConfig struct {
	APIURL            string        `mapstructure:"api_url"`   // 为空时使用 Stripe 官方地址，测试时指向假服务
	PageSize          int           `mapstructure:"page_size"` // 单页订阅数量，上限 100
	MaxNetworkRetries int           `mapstructure:"max_network_retries"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	BreakerTrips      uint32        `mapstructure:"breaker_trips"` // 连续失败多少次后熔断

	Connect StripeConnectConfig `mapstructure:"connect"`
}

// StripeConnectConfig OAuth 连接方式，client_id 为空时只能手动填写密钥
type StripeConnectConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"` // 平台自身的 secret key
	RedirectURL  string `mapstructure:"redirect_url"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
}

type SyncConfig struct {
	DefaultMonths   int           `mapstructure:"default_months"`
	LeaseTTL        time.Duration `mapstructure:"lease_ttl"`
	Queue           string        `mapstructure:"queue"`
	MaxWorkers      int           `mapstructure:"max_workers"`
	ScheduleEnabled bool          `mapstructure:"schedule_enabled"`
	ScheduleHour    int           `mapstructure:"schedule_hour"` // UTC 小时
}

type RateLimitConfig struct {
	BurstLimit   int           `mapstructure:"burst_limit"`
	BurstWindow  time.Duration `mapstructure:"burst_window"`
	HourlyLimit  int           `mapstructure:"hourly_limit"`
	HourlyWindow time.Duration `mapstructure:"hourly_window"`
}

type CryptoConfig struct {
	SecretKey string `mapstructure:"secret_key"` // base64 编码的 32 字节密钥
}

func Load(configPath string) (*Config, error) {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("stripe.page_size", 100)
	v.SetDefault("stripe.max_network_retries", 2)
	v.SetDefault("sync.default_months", 12)
	v.SetDefault("sync.lease_ttl", "15m")
	v.SetDefault("sync.queue", "revenue_sync_jobs")
	v.SetDefault("sync.max_workers", 2)
	v.SetDefault("sync.schedule_hour", 3)
	v.SetDefault("rate_limit.burst_limit", 3)
	v.SetDefault("rate_limit.burst_window", "5m")
	v.SetDefault("rate_limit.hourly_limit", 12)
	v.SetDefault("rate_limit.hourly_window", "1h")
}

// ApplyDefaults 填充零值字段，测试中直接构造 Config 时同样适用
func (c *Config) ApplyDefaults() {
	if c.JWT.ExpireHours <= 0 {
		c.JWT.ExpireHours = 24
	}
	if c.Stripe.PageSize <= 0 || c.Stripe.PageSize > 100 {
		c.Stripe.PageSize = 100
	}
	if c.Stripe.BreakerTimeout <= 0 {
		c.Stripe.BreakerTimeout = 30 * time.Second
	}
	if c.Stripe.Connect.AuthURL == "" {
		c.Stripe.Connect.AuthURL = "https://connect.stripe.com/oauth/authorize"
	}
	if c.Stripe.Connect.TokenURL == "" {
		c.Stripe.Connect.TokenURL = "https://connect.stripe.com/oauth/token"
	}
	if c.Stripe.BreakerTrips == 0 {
		c.Stripe.BreakerTrips = 5
	}
	if c.Sync.DefaultMonths <= 0 {
		c.Sync.DefaultMonths = 12
	}
	if c.Sync.LeaseTTL <= 0 {
		c.Sync.LeaseTTL = 15 * time.Minute
	}
	if c.Sync.Queue == "" {
		c.Sync.Queue = "revenue_sync_jobs"
	}
	if c.Sync.MaxWorkers <= 0 {
		c.Sync.MaxWorkers = 1
	}
	if c.RateLimit.BurstLimit <= 0 {
		c.RateLimit.BurstLimit = 3
	}
	if c.RateLimit.BurstWindow <= 0 {
		c.RateLimit.BurstWindow = 5 * time.Minute
	}
	if c.RateLimit.HourlyLimit <= 0 {
		c.RateLimit.HourlyLimit = 12
	}
	if c.RateLimit.HourlyWindow <= 0 {
		c.RateLimit.HourlyWindow = time.Hour
	}
}
