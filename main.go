package main

import (
	"fmt"
	"os"

	"jira-insights-bot/config"
	"jira-insights-bot/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// Loaded once by the root command before any subcommand runs.
var (
	cfg    config.Config
	logger zerolog.Logger
)

var rootFlags struct {
	logLevel   string
	fieldsFile string
}

var rootCmd = &cobra.Command{
	Use:   "jira-insights-bot",
	Short: "Slack bot that summarizes customer bugs for a Jira component",
	Long: "jira-insights-bot answers Slack mentions with the Jira components that match,\n" +
		"then summarizes the component's customer bugs with an LLM and posts the results.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: loadConfig,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	f.StringVar(&rootFlags.fieldsFile, "fields", "", "YAML map of Jira custom field ids (overrides JIRA_FIELDS_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(componentsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(installationsCmd)
	rootCmd.Version = version
}

func loadConfig(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if rootFlags.fieldsFile != "" {
		fields, err := config.LoadFieldMap(rootFlags.fieldsFile)
		if err != nil {
			return err
		}
		cfg.JiraFieldsFile = rootFlags.fieldsFile
		cfg.JiraFields = fields
	}
	logger = logging.New(cfg.AppEnv, cfg.LogLevel)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
