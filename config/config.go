package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the travel planning system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Flights   FlightsConfig   `mapstructure:"flights"`
	Browse    BrowseConfig    `mapstructure:"browse"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the OpenAI chat-completions settings shared by all agent roles
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SearchConfig contains Serper web search settings
type SearchConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Country string        `mapstructure:"country"`
	Lang    string        `mapstructure:"lang"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WeatherConfig contains WeatherAPI settings
type WeatherConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FlightsConfig contains Amadeus flight search settings
type FlightsConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	TokenURL  string        `mapstructure:"token_url"`
	OffersURL string        `mapstructure:"offers_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// BrowseConfig contains webpage extraction settings
type BrowseConfig struct {
	Fetcher  string        `mapstructure:"fetcher"` // http or chromedp
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// CacheConfig contains the optional search response cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// requiredSecrets are the credentials the planner cannot run without.
var requiredSecrets = []string{
	"OPENAI_API_KEY",
	"SERPER_API_KEY",
	"WEATHER_API_KEY",
	"AMADEUS_API_KEY",
	"AMADEUS_API_SECRET",
}

// LoadConfig loads configuration from .env, config file and environment variables
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	viper.SetConfigName("wayfarer")
	viper.SetConfigType("yaml")
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("WAYFARER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// CheckRequired reports every missing credential at once so the operator can
// fix the environment in one pass.
func CheckRequired() []string {
	var missing []string
	for _, name := range requiredSecrets {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")

	viper.SetDefault("server.address", ":8080")

	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", "2m")

	viper.SetDefault("search.base_url", "https://google.serper.dev")
	viper.SetDefault("search.country", "us")
	viper.SetDefault("search.lang", "en")
	viper.SetDefault("search.timeout", "30s")

	viper.SetDefault("weather.base_url", "http://api.weatherapi.com/v1")
	viper.SetDefault("weather.timeout", "30s")

	viper.SetDefault("flights.token_url", "https://test.api.amadeus.com/v1/security/oauth2/token")
	viper.SetDefault("flights.offers_url", "https://test.api.amadeus.com/v2/shopping/flight-offers")
	viper.SetDefault("flights.timeout", "30s")

	viper.SetDefault("browse.fetcher", "http")
	viper.SetDefault("browse.timeout", "30s")
	viper.SetDefault("browse.max_chars", 8000)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.redis_db", 0)
	viper.SetDefault("cache.ttl", "10m")

	viper.SetDefault("telemetry.enabled", true)
}

// overrideFromEnv overrides configuration with environment variables for sensitive data
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		viper.Set("search.api_key", apiKey)
	}
	if apiKey := os.Getenv("WEATHER_API_KEY"); apiKey != "" {
		viper.Set("weather.api_key", apiKey)
	}
	if apiKey := os.Getenv("AMADEUS_API_KEY"); apiKey != "" {
		viper.Set("flights.api_key", apiKey)
	}
	if secret := os.Getenv("AMADEUS_API_SECRET"); secret != "" {
		viper.Set("flights.api_secret", secret)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		viper.Set("cache.redis_addr", addr)
	}
}
