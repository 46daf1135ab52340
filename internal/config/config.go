package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	GeminiAPIKey        string
	GeminiBaseURL       string
	GeminiAPIVersion    string
	GeminiAnalysisModel string
	GeminiImageModel    string

	AnalysisProvider  string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIVisionModel string

	WebAddr  string
	LogLevel string
	Debug    bool

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	DesignVariations      int
	GenerationConcurrency int
	MaxUploadBytes        int

	SessionDriver string
	SessionTTL    time.Duration
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	TelegramToken string
	MaxConcurrent int
}

// fileConfig mirrors Config for the optional YAML file named by CONFIG_FILE.
// Zero values leave the default in place.
type fileConfig struct {
	Gemini struct {
		APIKey        string `yaml:"api_key"`
		BaseURL       string `yaml:"base_url"`
		APIVersion    string `yaml:"api_version"`
		AnalysisModel string `yaml:"analysis_model"`
		ImageModel    string `yaml:"image_model"`
	} `yaml:"gemini"`
	Analysis struct {
		Provider string `yaml:"provider"`
	} `yaml:"analysis"`
	OpenAI struct {
		APIKey      string `yaml:"api_key"`
		BaseURL     string `yaml:"base_url"`
		VisionModel string `yaml:"vision_model"`
	} `yaml:"openai"`
	Server struct {
		Addr                  string `yaml:"addr"`
		LogLevel              string `yaml:"log_level"`
		Debug                 *bool  `yaml:"debug"`
		PreferIPv4            *bool  `yaml:"prefer_ipv4"`
		HTTPTimeoutSeconds    int    `yaml:"http_timeout_seconds"`
		RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	} `yaml:"server"`
	Generation struct {
		Variations     int `yaml:"variations"`
		Concurrency    int `yaml:"concurrency"`
		MaxUploadBytes int `yaml:"max_upload_bytes"`
	} `yaml:"generation"`
	Session struct {
		Driver     string `yaml:"driver"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"session"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Telegram struct {
		Token         string `yaml:"token"`
		MaxConcurrent int    `yaml:"max_concurrent"`
	} `yaml:"telegram"`
}

func defaults() Config {
	return Config{
		GeminiBaseURL:         "https://generativelanguage.googleapis.com",
		GeminiAPIVersion:      "v1beta",
		GeminiAnalysisModel:   "gemini-2.5-flash",
		GeminiImageModel:      "gemini-2.5-flash-image",
		AnalysisProvider:      ProviderGemini,
		OpenAIBaseURL:         "https://api.openai.com/v1",
		OpenAIVisionModel:     "gpt-4o-mini",
		WebAddr:               ":8080",
		LogLevel:              "info",
		PreferIPv4:            true,
		HTTPTimeout:           180 * time.Second,
		RequestTimeout:        300 * time.Second,
		DesignVariations:      5,
		GenerationConcurrency: 1,
		MaxUploadBytes:        4 << 20,
		SessionDriver:         "memory",
		SessionTTL:            120 * time.Minute,
		RedisPrefix:           "visionary:session:",
		MaxConcurrent:         4,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then the environment.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateBot checks the settings only the chat bot needs.
func (c Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.GeminiAPIKey == "":
		return errors.New("GEMINI_API_KEY is required")
	case c.AnalysisProvider != ProviderGemini && c.AnalysisProvider != ProviderOpenAI:
		return fmt.Errorf("unsupported ANALYSIS_PROVIDER %q", c.AnalysisProvider)
	case c.AnalysisProvider == ProviderOpenAI && c.OpenAIAPIKey == "":
		return errors.New("OPENAI_API_KEY is required when ANALYSIS_PROVIDER=openai")
	case c.SessionDriver == "redis" && c.RedisAddr == "":
		return errors.New("REDIS_ADDR is required when SESSION_DRIVER=redis")
	}

	if c.DesignVariations < 1 || c.DesignVariations > 5 {
		c.DesignVariations = 5
	}
	if c.GenerationConcurrency < 1 {
		c.GenerationConcurrency = 1
	}
	if c.MaxUploadBytes <= 0 || c.MaxUploadBytes > 4<<20 {
		c.MaxUploadBytes = 4 << 20
	}
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 300 * time.Second
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 180 * time.Second
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 120 * time.Minute
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.GeminiAPIKey, fc.Gemini.APIKey)
	setString(&cfg.GeminiBaseURL, fc.Gemini.BaseURL)
	setString(&cfg.GeminiAPIVersion, fc.Gemini.APIVersion)
	setString(&cfg.GeminiAnalysisModel, fc.Gemini.AnalysisModel)
	setString(&cfg.GeminiImageModel, fc.Gemini.ImageModel)
	setString(&cfg.AnalysisProvider, fc.Analysis.Provider)
	setString(&cfg.OpenAIAPIKey, fc.OpenAI.APIKey)
	setString(&cfg.OpenAIBaseURL, fc.OpenAI.BaseURL)
	setString(&cfg.OpenAIVisionModel, fc.OpenAI.VisionModel)
	setString(&cfg.WebAddr, fc.Server.Addr)
	setString(&cfg.LogLevel, fc.Server.LogLevel)
	if fc.Server.Debug != nil {
		cfg.Debug = *fc.Server.Debug
	}
	if fc.Server.PreferIPv4 != nil {
		cfg.PreferIPv4 = *fc.Server.PreferIPv4
	}
	setSeconds(&cfg.HTTPTimeout, fc.Server.HTTPTimeoutSeconds)
	setSeconds(&cfg.RequestTimeout, fc.Server.RequestTimeoutSeconds)
	setInt(&cfg.DesignVariations, fc.Generation.Variations)
	setInt(&cfg.GenerationConcurrency, fc.Generation.Concurrency)
	setInt(&cfg.MaxUploadBytes, fc.Generation.MaxUploadBytes)
	setString(&cfg.SessionDriver, fc.Session.Driver)
	if fc.Session.TTLMinutes > 0 {
		cfg.SessionTTL = time.Duration(fc.Session.TTLMinutes) * time.Minute
	}
	setString(&cfg.RedisAddr, fc.Redis.Addr)
	setString(&cfg.RedisUsername, fc.Redis.Username)
	setString(&cfg.RedisPassword, fc.Redis.Password)
	setInt(&cfg.RedisDB, fc.Redis.DB)
	setString(&cfg.RedisPrefix, fc.Redis.Prefix)
	setString(&cfg.TelegramToken, fc.Telegram.Token)
	setInt(&cfg.MaxConcurrent, fc.Telegram.MaxConcurrent)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiBaseURL = getEnv("GEMINI_BASE_URL", cfg.GeminiBaseURL)
	cfg.GeminiAPIVersion = getEnv("GEMINI_API_VERSION", cfg.GeminiAPIVersion)
	cfg.GeminiAnalysisModel = getEnv("GEMINI_ANALYSIS_MODEL", cfg.GeminiAnalysisModel)
	cfg.GeminiImageModel = getEnv("GEMINI_IMAGE_MODEL", cfg.GeminiImageModel)

	cfg.AnalysisProvider = strings.ToLower(getEnv("ANALYSIS_PROVIDER", cfg.AnalysisProvider))
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIVisionModel = getEnv("OPENAI_VISION_MODEL", cfg.OpenAIVisionModel)

	cfg.WebAddr = getEnv("WEB_ADDR", cfg.WebAddr)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.Debug = getEnvBool("DEBUG", cfg.Debug)
	cfg.PreferIPv4 = getEnvBool("PREFER_IPV4", cfg.PreferIPv4)
	cfg.HTTPTimeout = time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", int(cfg.HTTPTimeout/time.Second))) * time.Second
	cfg.RequestTimeout = time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", int(cfg.RequestTimeout/time.Second))) * time.Second

	cfg.DesignVariations = getEnvInt("DESIGN_VARIATIONS", cfg.DesignVariations)
	cfg.GenerationConcurrency = getEnvInt("GENERATION_CONCURRENCY", cfg.GenerationConcurrency)
	cfg.MaxUploadBytes = getEnvInt("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.SessionDriver = strings.ToLower(getEnv("SESSION_DRIVER", cfg.SessionDriver))
	cfg.SessionTTL = time.Duration(getEnvInt("SESSION_TTL_MINUTES", int(cfg.SessionTTL/time.Minute))) * time.Minute
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisUsername = getEnv("REDIS_USERNAME", cfg.RedisUsername)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.RedisPrefix = getEnv("REDIS_PREFIX", cfg.RedisPrefix)

	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
	cfg.MaxConcurrent = getEnvInt("MAX_CONCURRENT", cfg.MaxConcurrent)
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

func setSeconds(dst *time.Duration, seconds int) {
	if seconds > 0 {
		*dst = time.Duration(seconds) * time.Second
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
