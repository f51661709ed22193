package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Application ApplicationConfig `mapstructure:"application"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	AI          AIConfig          `mapstructure:"ai"`
	Merge       MergeConfig       `mapstructure:"merge"`
}

type ApplicationConfig struct {
	Name     string        `mapstructure:"name"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Language string        `mapstructure:"language"`
	Storage  StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Template string `mapstructure:"template"`
}

type CatalogConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	Referer        string   `mapstructure:"referer"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	UserAgents     []string `mapstructure:"user_agents"`
	DelayMinMs     int      `mapstructure:"delay_min_ms"`
	DelayMaxMs     int      `mapstructure:"delay_max_ms"`
}

func (c *CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *CatalogConfig) DelayRange() (time.Duration, time.Duration) {
	return time.Duration(c.DelayMinMs) * time.Millisecond,
		time.Duration(c.DelayMaxMs) * time.Millisecond
}

type AIConfig struct {
	ActiveProvider string                      `mapstructure:"active_provider"`
	TimeoutSeconds int                         `mapstructure:"timeout_seconds"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
}

type ProviderSettings struct {
	Driver      string  `mapstructure:"driver"` // openai, deepseek, gemini
	Key         string  `mapstructure:"key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Active returns the settings of the active provider, zero value if unset.
func (c *AIConfig) Active() ProviderSettings {
	return c.Providers[c.ActiveProvider]
}

type MergeConfig struct {
	// MissingImage controls what happens to the product_image shape when no
	// image bytes were fetched: "keep" leaves the placeholder in place,
	// "remove" deletes it.
	MissingImage string `mapstructure:"missing_image"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: .env file not found, using system environment variables")
	}

	viper.SetConfigFile("config.yaml") // Support optional config.yaml
	viper.AutomaticEnv()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"application.port", "PORT"},
		{"application.language", "LANGUAGE"},
		{"application.storage.template", "STORAGE_TEMPLATE"},

		{"catalog.base_url", "CATALOG_BASE_URL"},
		{"catalog.referer", "CATALOG_REFERER"},
		{"catalog.timeout_seconds", "CATALOG_TIMEOUT"},
		{"catalog.delay_min_ms", "CATALOG_DELAY_MIN_MS"},
		{"catalog.delay_max_ms", "CATALOG_DELAY_MAX_MS"},

		{"ai.active_provider", "AI_PROVIDER"},
		{"ai.timeout_seconds", "AI_TIMEOUT"},
		{"ai.providers.deepseek.key", "DEEPSEEK_KEY"},
		{"ai.providers.deepseek.model", "DEEPSEEK_MODEL"},
		{"ai.providers.openai.key", "OPENAI_API_KEY"},
		{"ai.providers.openai.model", "OPENAI_MODEL"},
		{"ai.providers.openai.endpoint", "OPENAI_BASE_URL"},
		{"ai.providers.gemini.key", "GEMINI_KEY"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},

		{"merge.missing_image", "MERGE_MISSING_IMAGE"},
	}

	for _, m := range mappings {
		viper.BindEnv(m.key, m.env)
	}

	// Defaults
	viper.SetDefault("application.name", "CueForge")
	viper.SetDefault("application.port", 8080)
	viper.SetDefault("application.language", "zh")
	viper.SetDefault("application.storage.template", "templates")

	viper.SetDefault("catalog.base_url", "https://item.jd.com")
	viper.SetDefault("catalog.referer", "https://item.jd.com/")
	viper.SetDefault("catalog.timeout_seconds", 15)
	viper.SetDefault("catalog.delay_min_ms", 1500)
	viper.SetDefault("catalog.delay_max_ms", 6000)
	viper.SetDefault("catalog.user_agents", []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})

	viper.SetDefault("ai.timeout_seconds", 40)
	viper.SetDefault("ai.providers.deepseek.driver", "deepseek")
	viper.SetDefault("ai.providers.deepseek.endpoint", "https://api.deepseek.com")
	viper.SetDefault("ai.providers.deepseek.model", "deepseek-chat")
	viper.SetDefault("ai.providers.deepseek.temperature", 0.7)
	viper.SetDefault("ai.providers.openai.driver", "openai")
	viper.SetDefault("ai.providers.gemini.driver", "gemini")

	viper.SetDefault("merge.missing_image", "keep")

	if err := viper.ReadInConfig(); err != nil {
		// Ignore if config.yaml is missing
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AI.ActiveProvider == "" {
		cfg.AI.ActiveProvider = "deepseek"
	}

	return &cfg, nil
}
