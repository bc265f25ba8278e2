package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/amirasaad/eventoolkit/infra/initializer"
	"github.com/amirasaad/eventoolkit/infra/transport/kafka"
	"github.com/amirasaad/eventoolkit/pkg/config"
	"github.com/amirasaad/eventoolkit/pkg/domain/room"
)

// RunSmokeTest produces a short room conversation to Kafka and consumes it
// through the input bridge to verify the Kafka transport locally.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	groupID := strings.TrimSpace(os.Getenv("GROUP_ID"))
	if groupID == "" {
		groupID = fmt.Sprintf("eventoolkit-smoke-%d", time.Now().UnixNano())
	}
	topic := "eventoolkit.smoke." + time.Now().Format("20060102150405")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps, err := initializer.NewDeps(&config.App{}, logger, nil)
	if err != nil {
		return err
	}
	defer deps.Observer.Stop()

	conversation := []any{
		room.NewUserJoined("alice"),
		room.NewUserJoined("bob"),
		room.NewMessagePosted("alice", "hello from kafka"),
		room.NewUserLeft("bob"),
	}
	messages := make([]string, len(conversation))
	for i, e := range conversation {
		raw, err := deps.Registry.Encode(e)
		if err != nil {
			return err
		}
		messages[i] = string(raw)
	}

	if err := kafka.Write(ctx, strings.Split(brokers, ","), topic, messages...); err != nil {
		logger.Error("write failed", "topic", topic, "error", err)
		return err
	}
	logger.Info("produced", "topic", topic, "messages", len(messages))

	reader, err := kafka.NewReader(kafka.Config{Brokers: strings.Split(brokers, ","), Topic: topic, GroupID: groupID})
	if err != nil {
		return err
	}
	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := make(chan error, 1)
	go func() { done <- kafka.New(reader, deps.Bridge, logger).Run(consumeCtx) }()

	for {
		state := deps.Room.State()
		if len(state.Messages) == 1 && slices.Equal(state.Members, []string{"alice"}) {
			break
		}
		select {
		case err := <-done:
			return fmt.Errorf("consumer stopped early: %w", err)
		case <-ctx.Done():
			return errors.New("timed out waiting for the conversation")
		case <-time.After(100 * time.Millisecond):
		}
	}
	stop()
	if err := <-done; err != nil {
		return err
	}

	logger.Info("kafka smoke test passed", "members", deps.Room.State().Members)
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}
