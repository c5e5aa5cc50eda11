package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	appName = "marketmood"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market sentiment dashboard client core",
		Version: version,
		Long: `marketmood is the client core of a market sentiment dashboard:
a time-boxed news cache with graceful degradation, and a realtime
asset-room subscription layer that fans server updates out to
independent poll and comment widgets.`,
	}

	addGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newNewsCmd())
	rootCmd.AddCommand(newCacheCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to YAML config file (defaults apply when omitted)")
	flags.String("redis", "", "Redis address for durable client state (in-memory when omitted)")
	flags.Bool("verbose", false, "Enable debug logging")
}

// stdoutIsTTY decides the default output format: tables for humans,
// JSON when piped.
func stdoutIsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func applyVerbosity(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
