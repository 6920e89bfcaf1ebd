package cmd

import (
	"errors"
	"log"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/addislabs/jobsift/internal/dedup"
	"github.com/addislabs/jobsift/internal/detect"
	"github.com/addislabs/jobsift/internal/match"
	"github.com/addislabs/jobsift/internal/pipeline"
	"github.com/addislabs/jobsift/internal/sweeper"
)

const (
	app = "jobsift"
)

// Config is the full application configuration, loaded from the YAML config
// file and environment. Every section has working defaults; an empty config
// file is valid for a dry run.
type Config struct {
	Database  *DatabaseConfig `mapstructure:"database"`
	Redis     *RedisConfig    `mapstructure:"redis"`
	Detection detect.Config   `mapstructure:"detection"`
	Pipeline  pipeline.Config `mapstructure:"pipeline"`
	Dedup     dedup.Config    `mapstructure:"dedup"`
	Match     match.Config    `mapstructure:"match"`
	Sweeper   sweeper.Config  `mapstructure:"sweeper"`
	AI        *AIConfig       `mapstructure:"ai"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobsift extracts structured job postings from chat feeds and searches them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("database.url", "JOBSIFT_DATABASE_URL"); err != nil {
		log.Fatalf("binding JOBSIFT_DATABASE_URL environment variable: %v", err)
	}
	if err := viper.BindEnv("redis.url", "JOBSIFT_REDIS_URL"); err != nil {
		log.Fatalf("binding JOBSIFT_REDIS_URL environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobsift.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Defaults cover everything when no explicit file was requested.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

// getConfig materializes the defaults and overlays the parsed config file.
// Values absent from the file keep their defaults.
func getConfig() (*Config, error) {
	config := &Config{
		Detection: detect.DefaultConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		Dedup:     dedup.DefaultConfig(),
		Match:     match.DefaultConfig(),
		Sweeper:   sweeper.DefaultConfig(),
	}

	err := viper.Unmarshal(config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, err
	}

	return config, nil
}
