package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/grillo/pkg/chat"
	"github.com/go-go-golems/grillo/pkg/openrouter"
	"github.com/go-go-golems/grillo/pkg/settings"
)

// runPiped summarizes stdin in one shot. The streamed reply is the only
// thing written to stdout; diagnostics go to stderr.
func runPiped(ctx context.Context, cfg *settings.Settings, client *openrouter.Client) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read piped input: %s\n", err)
		return errors.Wrap(err, "failed to read piped input")
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		fmt.Fprintln(os.Stderr, "Error: no data piped to stdin.")
		return errors.New("no data piped to stdin")
	}

	fmt.Fprintf(os.Stderr, "Processing piped input with model: %s\n", cfg.Model)

	return runWithSession(ctx, cfg, client, os.Stdout, func(ctx context.Context, session *chat.Session) error {
		outcome := session.Summarize(ctx, content)
		if !outcome.Succeeded() {
			fmt.Fprintln(os.Stderr, outcome.Err.UserMessage())
			return outcome.Err
		}
		return nil
	})
}
