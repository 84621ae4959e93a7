package cmd

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/prepscout/internal/api"
	"github.com/spigell/prepscout/internal/discovery"
	"github.com/spigell/prepscout/internal/filtering"
	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/retention"
)

const (
	app = "prepscout"
)

type Config struct {
	SerpAPI   *SerpAPIConfig     `mapstructure:"serpapi"`
	AI        *AIConfig          `mapstructure:"ai"`
	Storage   *StorageConfig     `mapstructure:"storage"`
	Events    *EventsConfig      `mapstructure:"events"`
	Server    *ServerConfig      `mapstructure:"server"`
	Discovery discovery.Options  `mapstructure:"discovery"`
	Filters   filtering.Config   `mapstructure:"filters"`
	Retention retention.Options  `mapstructure:"retention"`
	Search    jobs.SearchRequest `mapstructure:"search"`
	// UserID owns the sessions recorded by the search command.
	UserID string `mapstructure:"user-id"`
}

type SerpAPIConfig struct {
	APIKey        string        `mapstructure:"api-key"`
	APIKeyFile    string        `mapstructure:"api-key-file"`
	BaseURL       string        `mapstructure:"base-url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate-per-second"`
	Burst         int           `mapstructure:"burst"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	Claude       *ClaudeConfig `mapstructure:"claude"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type ClaudeConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxTokens  int    `mapstructure:"max-tokens"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type StorageConfig struct {
	Backend     string          `mapstructure:"backend"`
	DatabaseURL string          `mapstructure:"database-url"`
	Supabase    *SupabaseConfig `mapstructure:"supabase"`
}

type SupabaseConfig struct {
	URL     string `mapstructure:"url"`
	Key     string `mapstructure:"key"`
	KeyFile string `mapstructure:"key-file"`
}

type EventsConfig struct {
	RedisURL string `mapstructure:"redis-url"`
	Channel  string `mapstructure:"channel"`
}

type ServerConfig struct {
	Address string      `mapstructure:"address"`
	API     api.Options `mapstructure:",squash"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "prepscout finds job postings, ranks them against your resume and prepares you for interviews",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"serpapi.api-key":        "SERPAPI_KEY",
	"ai.gemini.api-key":      "GEMINI_API_KEY",
	"ai.claude.api-key":      "ANTHROPIC_API_KEY",
	"storage.database-url":   "DATABASE_URL",
	"storage.supabase.url":   "SUPABASE_URL",
	"storage.supabase.key":   "SUPABASE_KEY",
	"events.redis-url":       "REDIS_URL",
	"server.address":         "PREPSCOUT_ADDRESS",
	"storage.backend":        "PREPSCOUT_STORAGE",
	"user-id":                "PREPSCOUT_USER_ID",
	"ai.provider":            "PREPSCOUT_AI_PROVIDER",
	"serpapi.api-key-file":   "SERPAPI_KEY_FILE",
	"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("storage.backend", "memory")
	viper.SetDefault("retention.schedule", retention.DefaultSchedule)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is prepscout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command needs no configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicit config file must parse; the default one is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.SerpAPI == nil {
		config.SerpAPI = &SerpAPIConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.Events == nil {
		config.Events = &EventsConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
