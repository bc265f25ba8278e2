package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/amirasaad/eventoolkit/infra/initializer"
	watermilltransport "github.com/amirasaad/eventoolkit/infra/transport/watermill"
	"github.com/amirasaad/eventoolkit/pkg/bridge"
	"github.com/amirasaad/eventoolkit/pkg/config"
	"github.com/amirasaad/eventoolkit/pkg/domain/room"
	"github.com/fatih/color"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		fmt.Println("Type one event envelope per line, for example:")
		fmt.Println(`  {"type":"room.user_joined","payload":{"user":"alice"}}`)
	}

	if err := run(ctx, os.Stdin, os.Stdout, interactive); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err) //nolint:errcheck
		os.Exit(1)
	}
}

// run reads envelopes from in, one per line, and prints the room after each.
// Lines travel through an in-process watermill topic to the input bridge.
func run(ctx context.Context, in io.Reader, out io.Writer, interactive bool) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	deps, err := initializer.NewDeps(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Observer.Stop()

	pubSub := watermilltransport.NewGoChannel(logger,
		watermilltransport.WithPersistence(),
		watermilltransport.WithBlockingPublish(),
	)
	defer pubSub.Close() //nolint:errcheck

	// Errors are reported to the user rather than redelivered.
	results := make(chan error, 1)
	handler := bridge.MessageHandlerFunc(func(ctx context.Context, msg string) error {
		results <- deps.Bridge.OnMessage(ctx, msg)
		return nil
	})
	topic := cfg.Transport.Watermill.Topic
	sub := watermilltransport.New(pubSub, topic, handler, logger)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := sub.Run(subCtx); err != nil {
			logger.Error("subscriber stopped", "error", err)
		}
	}()

	scanner := bufio.NewScanner(in)
	prompt(out, interactive)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			prompt(out, interactive)
			continue
		}
		if err := watermilltransport.Publish(pubSub, topic, line); err != nil {
			return err
		}
		select {
		case err := <-results:
			if err != nil {
				color.New(color.FgRed).Fprintln(out, "✗", err) //nolint:errcheck
			} else {
				printRoom(out, deps.Room.State())
			}
		case <-ctx.Done():
			return nil
		}
		prompt(out, interactive)
	}
	return scanner.Err()
}

func prompt(out io.Writer, interactive bool) {
	if interactive {
		color.New(color.FgCyan).Fprint(out, "> ") //nolint:errcheck
	}
}

func printRoom(out io.Writer, s room.State) {
	green := color.New(color.FgGreen, color.Bold)
	faint := color.New(color.Faint)
	green.Fprintf(out, "✓ members (%d): %s\n", len(s.Members), strings.Join(s.Members, ", ")) //nolint:errcheck
	if n := len(s.Messages); n > 0 {
		last := s.Messages[n-1]
		faint.Fprintf(out, "  last message from %s: %s\n", last.User, last.Text) //nolint:errcheck
	}
}
