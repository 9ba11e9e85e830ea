package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from config.json, .env or the environment.
type AppConfig struct {
	AppPort            string
	SecretKey          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis backs sessions and signup throttling; empty host means in-memory sessions
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Session cookie
	SessionCookieName string
	SessionMaxAge     time.Duration
	SessionSecure     bool
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Signup throttling, 0 disables a rule
	RegisterMaxPerIPPerDay     int
	RegisterAttemptCooldownSec int
	RegisterCaptchaEnabled     bool
}

// ErrMissingSecret is returned when no SECRET_KEY could be resolved.
var ErrMissingSecret = errors.New("SECRET_KEY must be set")

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatal(err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// LoadFrom resolves configuration with precedence .env -> json file -> defaults -> environment.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig

	// .env is optional; variables already present in the environment win
	_ = godotenv.Load()

	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}

	if c.SecretKey == "" {
		return c, ErrMissingSecret
	}
	return c, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort"`
		SecretKey          string   `json:"SecretKey"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins"`
	} `json:"app"`
	Database struct {
		Driver      string `json:"Driver"`
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
	} `json:"database"`
	Redis struct {
		RedisHost     string `json:"RedisHost"`
		RedisPort     int    `json:"RedisPort"`
		RedisDB       int    `json:"RedisDB"`
		RedisPassword string `json:"RedisPassword"`
	} `json:"redis"`
	Session struct {
		CookieName    string `json:"CookieName"`
		MaxAgeSeconds int    `json:"MaxAgeSeconds"`
		Secure        bool   `json:"Secure"`
	} `json:"session"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		GinMode    string `json:"GinMode"`
		GinPath    string `json:"GinPath"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
	Register struct {
		MaxPerIPPerDay     int  `json:"MaxPerIPPerDay"`
		AttemptCooldownSec int  `json:"AttemptCooldownSec"`
		CaptchaEnabled     bool `json:"CaptchaEnabled"`
	} `json:"register"`
}

// loadJSONConfig reads a grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw fileConfig
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	out.AppPort = raw.App.AppPort
	out.SecretKey = raw.App.SecretKey
	out.RateLimitPerMinute = raw.App.RateLimitPerMinute
	out.AllowedOrigins = raw.App.AllowedOrigins

	out.DBDriver = raw.Database.Driver
	out.DatabaseURI = raw.Database.DatabaseURI
	out.DBHost = raw.Database.DBHost
	out.DBPort = raw.Database.DBPort
	out.DBUser = raw.Database.DBUser
	out.DBPassword = raw.Database.DBPassword
	out.DBName = raw.Database.DBName

	out.RedisHost = raw.Redis.RedisHost
	out.RedisPort = raw.Redis.RedisPort
	out.RedisDB = raw.Redis.RedisDB
	out.RedisPassword = raw.Redis.RedisPassword

	out.SessionCookieName = raw.Session.CookieName
	out.SessionMaxAge = time.Duration(raw.Session.MaxAgeSeconds) * time.Second
	out.SessionSecure = raw.Session.Secure

	out.LogLevel = raw.Log.Level
	out.LogPath = raw.Log.Path
	out.GinMode = raw.Log.GinMode
	out.GinPath = raw.Log.GinPath
	out.LogMaxSizeMB = raw.Log.MaxSizeMB
	out.LogMaxBackups = raw.Log.MaxBackups
	out.LogMaxAgeDays = raw.Log.MaxAgeDays
	out.LogCompress = raw.Log.Compress

	out.RegisterMaxPerIPPerDay = raw.Register.MaxPerIPPerDay
	out.RegisterAttemptCooldownSec = raw.Register.AttemptCooldownSec
	out.RegisterCaptchaEnabled = raw.Register.CaptchaEnabled
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "newspaper"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "sessionid"
	}
	if c.SessionMaxAge == 0 {
		// two weeks, the usual browser session lifetime for this kind of site
		c.SessionMaxAge = 14 * 24 * time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("SECRET_KEY", ""); v != "" {
		c.SecretKey = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("SESSION_COOKIE_NAME", ""); v != "" {
		c.SessionCookieName = v
	}
	if v := getEnv("SESSION_SECURE", ""); v != "" {
		c.SessionSecure = v == "true"
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("REGISTER_CAPTCHA_ENABLED", ""); v != "" {
		c.RegisterCaptchaEnabled = v == "true"
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute},
		{"REDIS_PORT", &c.RedisPort},
		{"REDIS_DB", &c.RedisDB},
		{"LOG_MAX_SIZE_MB", &c.LogMaxSizeMB},
		{"LOG_MAX_BACKUPS", &c.LogMaxBackups},
		{"LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays},
		{"REGISTER_MAX_PER_IP_PER_DAY", &c.RegisterMaxPerIPPerDay},
		{"REGISTER_ATTEMPT_COOLDOWN_SEC", &c.RegisterAttemptCooldownSec},
	}
	for _, it := range ints {
		v := getEnv(it.key, "")
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid integer %s=%q: %w", it.key, v, err)
		}
		*it.dst = n
	}

	if v := getEnv("SESSION_MAX_AGE", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid duration SESSION_MAX_AGE=%q: %w", v, err)
		}
		c.SessionMaxAge = d
	}
	return nil
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
