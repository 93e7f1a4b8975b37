package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seaward/offer-service/config"
	"github.com/seaward/offer-service/internal/app"
)

var (
	cfgFile    string
	outputJSON bool
	cfg        *config.Config
	logger     *zerolog.Logger
	components *app.App
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "offer-service",
	Short: "Offer Service CLI - cruise offer cache and filter tool",
	Long: `A CLI tool for working with the cruise offer itinerary cache: merge scraped
offers, hydrate sailings from the search API, inspect cached pricing, and run the
offer filter pipeline with hidden groups and advanced-search predicates.`,
	PersistentPreRunE:  persistentPreRun,
	PersistentPostRunE: persistentPostRun,
	SilenceUsage:       true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON instead of tables")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun opens storage and loads the cache before each command
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()

	if cfg == nil {
		return fmt.Errorf("config required for %s command but not loaded", cmd.Name())
	}

	var err error
	components, err = app.Build(context.Background(), cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	return nil
}

func persistentPostRun(cmd *cobra.Command, args []string) error {
	if components == nil {
		return nil
	}
	return components.Close()
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// logs go to stderr so tables and JSON on stdout stay clean
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stderr
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
