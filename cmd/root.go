package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ashevtsov/jobsieve/internal/mail"
	"github.com/ashevtsov/jobsieve/internal/notify"
)

const (
	app = "jobsieve"
)

type Config struct {
	Profile        string        `mapstructure:"profile"`
	HistoryFile    string        `mapstructure:"history-file"`
	Threshold      *int          `mapstructure:"threshold"`
	ExcludedTitles []string      `mapstructure:"excluded-titles"`
	Concurrency    int           `mapstructure:"concurrency"`
	SummaryDir     string        `mapstructure:"summary-dir"`
	Email          *EmailConfig  `mapstructure:"email"`
	Notify         *NotifyConfig `mapstructure:"notify"`
	AI             *AIConfig     `mapstructure:"ai"`
}

// thresholdOrDefault returns the configured match threshold. The field is a
// pointer so an explicit zero (keep every scored posting) is distinguishable
// from an absent key, which falls back to the default.
func (c *Config) thresholdOrDefault() int {
	if c.Threshold == nil {
		return defaultThreshold
	}
	return *c.Threshold
}

type EmailConfig struct {
	mail.Config  `mapstructure:",squash"`
	PasswordFile string `mapstructure:"password-file"`
}

type NotifyConfig struct {
	Method string      `mapstructure:"method"`
	SMTP   *SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	notify.SMTPConfig `mapstructure:",squash"`
	PasswordFile      string `mapstructure:"password-file"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	Effort       string        `mapstructure:"effort"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobsieve reads job alert emails, scores postings against your profile and sends the matches",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobsieve.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	// Local development secrets. Missing file is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
