package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	HTTP      HTTPConfig
	Geo       GeoConfig
	Recorder  RecorderConfig
	Links     LinksConfig
}

type AppConfig struct {
	Port     string
	Env      string
	LogLevel string
	BaseURL  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type AuthConfig struct {
	APIKeys map[string]string // API key -> owner name
	Admins  []string          // owners allowed to change app settings
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// HTTPConfig controls how the client IP is derived behind proxies and edge networks.
type HTTPConfig struct {
	TrustedProxies  []string
	TrustedPlatform string // gin platform header, e.g. CF-Connecting-IP
}

// GeoConfig describes where coarse geolocation comes from.
// Header names are the trusted edge hints; MMDBPath and LookupURL are optional fallbacks.
type GeoConfig struct {
	CountryHeader string
	RegionHeader  string
	CityHeader    string
	MMDBPath      string
	LookupURL     string // must contain a single %s for the IP
	LookupTimeout time.Duration
}

type RecorderConfig struct {
	Workers int
	Buffer  int
	Timeout time.Duration
}

type LinksConfig struct {
	CodeLength     int
	BlockedDomains []string
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	cfg.App.Env = viper.GetString("APP_ENV")
	cfg.App.LogLevel = viper.GetString("LOG_LEVEL")
	cfg.App.BaseURL = strings.TrimRight(viper.GetString("BASE_URL"), "/")

	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.DB.MaxConns = viper.GetInt32("DB_MAX_CONNS")

	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")
	cfg.Redis.Password = viper.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = viper.GetInt("REDIS_DB")
	cfg.Redis.CacheTTL = viper.GetDuration("CACHE_TTL")

	// Format: key1:owner1,key2:owner2
	cfg.Auth.APIKeys = parseAPIKeys(viper.GetString("API_KEYS"))
	cfg.Auth.Admins = parseList(viper.GetString("ADMIN_OWNERS"))

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")

	cfg.HTTP.TrustedProxies = parseList(viper.GetString("TRUSTED_PROXIES"))
	cfg.HTTP.TrustedPlatform = viper.GetString("TRUSTED_PLATFORM")

	cfg.Geo.CountryHeader = viper.GetString("GEO_COUNTRY_HEADER")
	cfg.Geo.RegionHeader = viper.GetString("GEO_REGION_HEADER")
	cfg.Geo.CityHeader = viper.GetString("GEO_CITY_HEADER")
	cfg.Geo.MMDBPath = viper.GetString("GEO_MMDB_PATH")
	cfg.Geo.LookupURL = viper.GetString("GEO_LOOKUP_URL")
	cfg.Geo.LookupTimeout = viper.GetDuration("GEO_LOOKUP_TIMEOUT")

	cfg.Recorder.Workers = viper.GetInt("RECORDER_WORKERS")
	cfg.Recorder.Buffer = viper.GetInt("RECORDER_BUFFER")
	cfg.Recorder.Timeout = viper.GetDuration("RECORDER_TIMEOUT")

	cfg.Links.CodeLength = viper.GetInt("SHORT_CODE_LENGTH")
	cfg.Links.BlockedDomains = parseList(viper.GetString("BLOCKED_DOMAINS"))

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("BASE_URL", "http://localhost:8080")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 25)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("CACHE_TTL", "1h")

	viper.SetDefault("ADMIN_OWNERS", "admin")

	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)

	viper.SetDefault("GEO_COUNTRY_HEADER", "CF-IPCountry")
	viper.SetDefault("GEO_REGION_HEADER", "X-Geo-Region")
	viper.SetDefault("GEO_CITY_HEADER", "X-Geo-City")
	viper.SetDefault("GEO_LOOKUP_TIMEOUT", "2s")

	viper.SetDefault("RECORDER_WORKERS", 3)
	viper.SetDefault("RECORDER_BUFFER", 1000)
	viper.SetDefault("RECORDER_TIMEOUT", "5s")

	viper.SetDefault("SHORT_CODE_LENGTH", 6)
	viper.SetDefault("BLOCKED_DOMAINS", "malware.com,phishing.com,spam.com")
}

// parseAPIKeys parses comma-separated API keys in format "key1:owner1,key2:owner2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}

func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
