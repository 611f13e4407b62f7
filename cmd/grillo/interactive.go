package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	input "github.com/tcnksm/go-input"

	"github.com/go-go-golems/grillo/pkg/chat"
	"github.com/go-go-golems/grillo/pkg/openrouter"
	"github.com/go-go-golems/grillo/pkg/settings"
)

// runInteractive runs the terminal chat loop. Each prompt submits one turn;
// the reply streams to stdout as it arrives. Ctrl-C cancels the in-flight
// turn without leaving the loop.
func runInteractive(ctx context.Context, cfg *settings.Settings, client *openrouter.Client) error {
	fmt.Printf("Chatting with %s. Type 'exit' or 'quit' to leave, 'model <name>' to switch models.\n\n", cfg.Model)

	return runWithSession(ctx, cfg, client, os.Stdout, func(ctx context.Context, session *chat.Session) error {
		return chatLoop(ctx, session)
	})
}

type promptResult struct {
	line string
	err  error
}

// promptReader serves prompt reads off a single goroutine so the chat loop
// can select on signals while a read is pending. It exits on the first read
// error or when prompts is closed.
func promptReader(ui *input.UI, prompts <-chan string, replies chan<- promptResult) {
	for query := range prompts {
		line, err := ui.Ask(query, &input.Options{
			Required:  false,
			HideOrder: true,
		})
		replies <- promptResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

func chatLoop(ctx context.Context, session *chat.Session) error {
	ui := &input.UI{
		Writer: os.Stdout,
		Reader: os.Stdin,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	prompts := make(chan string)
	replies := make(chan promptResult, 1)
	go promptReader(ui, prompts, replies)
	defer close(prompts)

	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case prompts <- fmt.Sprintf("You (%s)", session.CurrentModel()):
		case <-ctx.Done():
			return nil
		case <-sigCh:
			fmt.Println("\nGoodbye!")
			return nil
		}

		var line string
		select {
		case <-ctx.Done():
			return nil

		case <-sigCh:
			fmt.Println("\nGoodbye!")
			return nil

		case result := <-replies:
			if result.err != nil {
				// EOF or a closed terminal; leave the loop quietly
				log.Debug().Err(result.err).Msg("prompt read failed, exiting chat loop")
				fmt.Println("\nGoodbye!")
				return nil
			}
			line = result.line
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			fmt.Println("Goodbye!")
			return nil
		case strings.HasPrefix(line, "model "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "model "))
			if name == "" {
				fmt.Fprintln(os.Stderr, "Usage: model <name>")
				continue
			}
			session.SetModel(name)
			fmt.Printf("Switched to model %s.\n", name)
			continue
		}

		submitTurn(ctx, session, sigCh, line)
	}
}

// submitTurn runs one turn in the background so a SIGINT can cancel it
// mid-stream. The loop only resumes once the turn has fully settled.
func submitTurn(ctx context.Context, session *chat.Session, sigCh chan os.Signal, userText string) {
	// drop any interrupt delivered between turns
	select {
	case <-sigCh:
	default:
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Printf("Assistant (%s): ", session.CurrentModel())

	done := make(chan chat.TurnOutcome, 1)
	go func() {
		done <- session.SubmitTurn(turnCtx, userText)
	}()

	interrupted := false
	for {
		select {
		case <-sigCh:
			log.Debug().Msg("interrupt received, cancelling turn")
			interrupted = true
			cancel()

		case outcome := <-done:
			switch {
			case outcome.Succeeded():
			case interrupted:
				fmt.Fprintln(os.Stderr, "Turn interrupted; nothing was added to the conversation.")
			default:
				fmt.Fprintln(os.Stderr, outcome.Err.UserMessage())
			}
			return
		}
	}
}
