package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/grillo/pkg/chat"
	"github.com/go-go-golems/grillo/pkg/events"
	"github.com/go-go-golems/grillo/pkg/openrouter"
	"github.com/go-go-golems/grillo/pkg/settings"
)

const chatTopic = "chat"

// runWithSession wires up the event router, the console echo handler and a
// session, runs fn alongside the router and tears everything down when fn
// returns. Streamed fragments are echoed to echo as they arrive.
func runWithSession(
	ctx context.Context,
	cfg *settings.Settings,
	client *openrouter.Client,
	echo io.Writer,
	fn func(ctx context.Context, session *chat.Session) error,
) error {
	router, err := events.NewEventRouter()
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()

	router.AddHandler("chat-printer", chatTopic, events.StepPrinterFunc("", echo))
	if zerolog.GlobalLevel() <= zerolog.TraceLevel {
		router.AddHandler("chat-dump", chatTopic, events.DumpEventsFunc(os.Stderr))
	}

	sink := events.NewWatermillSink(router.Publisher, chatTopic)
	session := chat.NewSession(client, cfg.Model, cfg.SystemPrompt, chat.NewAssembler(sink))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg := errgroup.Group{}
	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		return fn(ctx, session)
	})

	return eg.Wait()
}
