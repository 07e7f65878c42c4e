package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix               = "SNIPSTASH"
	defaultHTTPAddress      = "0.0.0.0:8080"
	defaultDatabasePath     = "snipstash.db"
	defaultLogLevel         = "info"
	defaultCookieName       = "app_session"
	defaultAuthIssuer       = "snipstash-auth"
	defaultEmbeddingBaseURL = "http://localhost:11434/v1"
	defaultEmbeddingModel   = "all-minilm"
	defaultEmbeddingDim     = 384
	defaultSearchLimit      = 10
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabasePath       string
	LogLevel           string
	AuthSigningKey     string
	AuthCookieName     string
	AuthIssuer         string
	EmbeddingBaseURL   string
	EmbeddingModel     string
	EmbeddingDimension int
	SearchDefaultLimit int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("auth.issuer", defaultAuthIssuer)
	configViper.SetDefault("embedding.base_url", defaultEmbeddingBaseURL)
	configViper.SetDefault("embedding.model", defaultEmbeddingModel)
	configViper.SetDefault("embedding.dimension", defaultEmbeddingDim)
	configViper.SetDefault("search.default_limit", defaultSearchLimit)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabasePath:       configViper.GetString("database.path"),
		LogLevel:           configViper.GetString("log.level"),
		AuthSigningKey:     configViper.GetString("auth.signing_secret"),
		AuthCookieName:     configViper.GetString("auth.cookie_name"),
		AuthIssuer:         configViper.GetString("auth.issuer"),
		EmbeddingBaseURL:   configViper.GetString("embedding.base_url"),
		EmbeddingModel:     configViper.GetString("embedding.model"),
		EmbeddingDimension: configViper.GetInt("embedding.dimension"),
		SearchDefaultLimit: configViper.GetInt("search.default_limit"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AuthSigningKey) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.AuthCookieName) == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if strings.TrimSpace(c.EmbeddingBaseURL) == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}
	if c.SearchDefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive")
	}
	return nil
}
