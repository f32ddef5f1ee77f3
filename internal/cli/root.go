// Package cli defines the cobra commands of the pitchcall binary.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/pitchcall/internal/config"
)

var (
	logJSON bool
	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "pitchcall",
	Short: "Voice pitch call client with post-call analysis",
	Long: `pitchcall joins a practice call with a voice agent, tracks who is in the
room and who is speaking, and after the call polls the analysis service
until the report is ready.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write JSON logs instead of console output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend-url", "", "Base URL of the token and analysis service")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(callCmd)
}

// initLogger sets up zerolog early so config.Load can use it.
func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !logJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("module", "cli").Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}
