package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ashevtsov/jobsieve/internal/ai"
	"github.com/ashevtsov/jobsieve/internal/ai/gemini"
	"github.com/ashevtsov/jobsieve/internal/ai/oai"
	"github.com/ashevtsov/jobsieve/internal/extract"
	"github.com/ashevtsov/jobsieve/internal/filtering"
	"github.com/ashevtsov/jobsieve/internal/history"
	"github.com/ashevtsov/jobsieve/internal/job"
	"github.com/ashevtsov/jobsieve/internal/logger"
	"github.com/ashevtsov/jobsieve/internal/mail"
	"github.com/ashevtsov/jobsieve/internal/notify"
	"github.com/ashevtsov/jobsieve/internal/pipeline"
	"github.com/ashevtsov/jobsieve/internal/profile"
	"github.com/ashevtsov/jobsieve/internal/secrets"
)

const (
	PromptYes        = "Yes"
	PromptNo         = "No"
	PromptJobsToFile = "Dump matched jobs to file"

	defaultThreshold  = 70
	defaultHistory    = "data/sent_jobs.json"
	defaultSummaryDir = "logs"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one job alert cycle",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before sending notifications")
	runCmd.Flags().Bool("dry-run", false, "print matches to stdout instead of sending email")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the jobsieve", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Email == nil {
		logger.Fatal("email section is required to fetch job alerts")
	}
	if config.Profile == "" {
		logger.Fatal("profile path is required under the 'profile' key to evaluate postings")
	}
	if config.HistoryFile == "" {
		config.HistoryFile = defaultHistory
	}
	if config.SummaryDir == "" {
		config.SummaryDir = defaultSummaryDir
	}

	rawProfile, err := profile.Load(config.Profile)
	if err != nil {
		logger.Fatal("loading the profile", zap.Error(err))
	}

	reader, err := newMailReader(config.Email, logger)
	if err != nil {
		logger.Fatal("building the mail reader", zap.Error(err))
	}

	stageA, stageB, err := newAnalyzers(ctx, config.AI, rawProfile, logger)
	if err != nil {
		logger.Fatal("building the analyzers", zap.Error(err))
	}

	dryRun := cmd.Flag("dry-run").Value.String() == "true"
	notifier, err := newNotifier(config.Notify, dryRun, logger)
	if err != nil {
		logger.Fatal("building the notifier", zap.Error(err))
	}
	if cmd.Flag("auto-approve").Value.String() == "false" && !dryRun {
		notifier = &confirmNotifier{next: notifier, logger: logger}
	}

	hist := history.Load(config.HistoryFile, logger)
	engine := filtering.New(hist, config.thresholdOrDefault(), config.ExcludedTitles, logger)

	pipe := pipeline.New(
		reader,
		extract.New(logger),
		engine,
		stageA,
		stageB,
		notifier,
		config.Concurrency,
		logger,
	)

	state, err := pipe.Run(ctx)
	if err != nil {
		logger.Fatal("pipeline failed", zap.Error(err))
	}

	summary := state.Summarize(time.Now())
	path, err := pipeline.WriteSummary(config.SummaryDir, summary, time.Now())
	if err != nil {
		logger.Warn("writing the run summary", zap.Error(err))
	} else {
		logger.Info("run summary written", zap.String("path", path))
	}

	logger.Info("cycle complete",
		zap.Int("emails_processed", summary.Statistics.EmailsProcessed),
		zap.Int("jobs_found", summary.Statistics.JobsFound),
		zap.Int("jobs_already_sent", summary.Statistics.JobsAlreadySent),
		zap.Int("jobs_excluded", summary.Statistics.JobsExcluded),
		zap.Int("jobs_matched", summary.Statistics.JobsMatched),
		zap.Int("notifications_sent", summary.Statistics.NotificationsSent),
	)
}

func newMailReader(cfg *EmailConfig, log *zap.Logger) (*mail.Reader, error) {
	password, err := secrets.Load(secrets.Source{
		Name:    "imap password",
		Value:   cfg.Password,
		File:    cfg.PasswordFile,
		EnvFile: "JOBSIEVE_IMAP_PASSWORD_FILE",
	})
	if err != nil {
		return nil, err
	}

	mailCfg := cfg.Config
	mailCfg.Password = password
	return mail.NewReader(mailCfg, log)
}

func newAnalyzers(ctx context.Context, cfg *AIConfig, rawProfile string, log *zap.Logger) (pipeline.RequirementExtractor, pipeline.Matcher, error) {
	if cfg == nil {
		return nil, nil, errors.New("ai section is required")
	}

	effort, err := ai.ParseEffort(cfg.Effort)
	if err != nil {
		return nil, nil, err
	}

	gen, err := newGenerator(ctx, cfg, effort)
	if err != nil {
		return nil, nil, err
	}

	genLogger := logger.WithAIFields(log, strings.ToLower(cfg.Provider), gen.Model())
	stageA := ai.NewRequirementExtractor(gen, cfg.MaxLogLength, logger.WithStage(genLogger, "requirements"))
	stageB := ai.NewMatcher(gen, profile.Numbered(rawProfile), cfg.MaxLogLength, logger.WithStage(genLogger, "match"))
	return stageA, stageB, nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, effort ai.Effort) (ai.Generator, error) {
	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", "gemini":
		if cfg.Gemini == nil {
			return nil, errors.New("gemini configuration is required when the gemini provider is selected")
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:    "gemini api key",
			File:    cfg.Gemini.APIKeyFile,
			EnvFile: "JOBSIEVE_GEMINI_API_KEY_FILE",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or JOBSIEVE_GEMINI_API_KEY_FILE)", err)
		}
		return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, effort)
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai configuration is required when the openai provider is selected")
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:    "openai api key",
			File:    cfg.OpenAI.APIKeyFile,
			EnvFile: "JOBSIEVE_OPENAI_API_KEY_FILE",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file or JOBSIEVE_OPENAI_API_KEY_FILE)", err)
		}
		return oai.NewGenerator(apiKey, cfg.OpenAI.Model, effort)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newNotifier(cfg *NotifyConfig, dryRun bool, log *zap.Logger) (notify.Notifier, error) {
	if dryRun {
		return notify.NewConsoleNotifier(os.Stdout), nil
	}
	if cfg == nil {
		return nil, errors.New("notify section is required")
	}

	switch method := strings.TrimSpace(strings.ToLower(cfg.Method)); method {
	case "console":
		return notify.NewConsoleNotifier(os.Stdout), nil
	case "", "smtp":
		if cfg.SMTP == nil {
			return nil, errors.New("smtp configuration is required when the smtp method is selected")
		}
		password, err := secrets.Load(secrets.Source{
			Name:    "smtp password",
			Value:   cfg.SMTP.Password,
			File:    cfg.SMTP.PasswordFile,
			EnvFile: "JOBSIEVE_SMTP_PASSWORD_FILE",
		})
		if err != nil {
			return nil, err
		}
		smtpCfg := cfg.SMTP.SMTPConfig
		smtpCfg.Password = password
		return notify.NewSMTPNotifier(smtpCfg, log)
	default:
		return nil, fmt.Errorf("unsupported notification method: %s", cfg.Method)
	}
}

// confirmNotifier asks for confirmation before handing the batch to the
// real notifier.
type confirmNotifier struct {
	next   notify.Notifier
	logger *zap.Logger
}

func (n *confirmNotifier) Notify(jobs []*job.Posting) (int, error) {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Send %d matched job(s)?", len(jobs)),
		Items: []string{PromptYes, PromptNo, PromptJobsToFile},
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return 0, err
		}

		switch action {
		case PromptYes:
			return n.next.Notify(jobs)
		case PromptNo:
			n.logger.Info("skipping notification", zap.String("reason", "got no from prompt"))
			return 0, nil
		case PromptJobsToFile:
			filename, err := dumpJobsToTmpFile(jobs)
			if err != nil {
				return 0, fmt.Errorf("dump matched jobs to file: %w", err)
			}
			n.logger.Info("dumping matched jobs to file", zap.String("filename", filename))
		}
	}
}

func dumpJobsToTmpFile(jobs []*job.Posting) (string, error) {
	f, err := os.CreateTemp("", "jobsieve-matched-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}
