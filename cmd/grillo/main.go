package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/grillo/pkg/openrouter"
	"github.com/go-go-golems/grillo/pkg/settings"
)

var rootCmd = &cobra.Command{
	Use:           "grillo",
	Short:         "Streaming chat client for OpenRouter-style completion endpoints",
	Long: `grillo keeps a running conversation with a remote completion endpoint and
streams replies to the console as they arrive.

With a terminal on stdin it runs an interactive chat loop; with piped input
it summarizes stdin and writes only the reply to stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := settings.Load()
	if err != nil {
		if errors.Is(err, settings.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "Error: OPENROUTER_API_KEY not found in environment variables or .env file.")
			fmt.Fprintln(os.Stderr, "Please set the OPENROUTER_API_KEY environment variable or create a .env file with OPENROUTER_API_KEY='YOUR_API_KEY'.")
			return err
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}

	setupLogging(cfg.LogLevel)

	clientOptions := []openrouter.Option{
		openrouter.WithConnectTimeout(cfg.ConnectTimeout),
		openrouter.WithHTTPReferer("http://localhost:8000"),
		openrouter.WithAppTitle("grillo"),
	}
	if cfg.BaseURL != "" {
		clientOptions = append(clientOptions, openrouter.WithBaseURL(cfg.BaseURL))
	}
	if cfg.AllowLocalEndpoints {
		clientOptions = append(clientOptions, openrouter.WithAllowLocalEndpoints())
	}

	client, err := openrouter.NewClient(cfg.APIKey, clientOptions...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return runInteractive(ctx, cfg, client)
	}
	return runPiped(ctx, cfg, client)
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
