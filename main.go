package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/core"
	logx "github.com/jan-sahayak/server/pkg/logger"
	pkgredis "github.com/jan-sahayak/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config
	Store model.StoreConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Router       model.RouterModelConfig
	Analysis     model.AnalysisModelConfig
	Response     model.ResponseModelConfig
	Cache        model.CacheConfig
	Conversation model.ConversationConfig
	Timeouts     model.TimeoutConfig
	Retrieval    model.RetrievalConfig
	Server       model.ServerConfig
}

var envFile string

var rootCmd = &cobra.Command{
	Use:   "jan-sahayak",
	Short: "Jan Sahayak citizen-services assistant",
	Long: `Jan Sahayak routes citizen questions to policy, eligibility, benefit and
advocacy specialists, or to an open conversation, and answers in the
citizen's language.

Configuration is read from the environment, after loading --env-file.
GEMINI_API_KEY is required.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}

// loadConfig reads the environment and initializes logging.
func loadConfig() (AppConfig, error) {
	if err := godotenv.Load(envFile); err != nil {
		// a missing file is normal outside local development
		logx.Debug().Err(err).Str("file", envFile).Msg("Could not load env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment config: %w", err)
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Env),
		Level:       cfg.LogLevel,
	})
	return cfg, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
