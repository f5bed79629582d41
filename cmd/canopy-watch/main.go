// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// canopy-watch is a headless channel watcher. It connects to the chat
// backend, watches a channel, and prints its event feed one line per
// event — useful for debugging event delivery, scripting, and
// capturing traffic for later replay.
//
// With --record, every event is also appended to a CBOR capture file.
// With --replay, no connection is made: the capture file is read back
// and printed with the originally observed timestamps.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/config"
	"github.com/canopy-chat/canopy/lib/ref"
	"github.com/canopy-chat/canopy/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var channelFlag string
	var recordPath string
	var replayPath string

	flagSet := pflag.NewFlagSet("canopy-watch", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (default: $CANOPY_CONFIG)")
	flagSet.StringVar(&channelFlag, "channel", "", "channel ID, e.g. #general")
	flagSet.StringVar(&recordPath, "record", "", "append events to this capture file")
	flagSet.StringVar(&replayPath, "replay", "", "print a capture file instead of connecting")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("canopy-watch")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if replayPath != "" {
		if recordPath != "" {
			return fmt.Errorf("--record and --replay are mutually exclusive")
		}
		return replay(ctx, replayPath)
	}

	args := flagSet.Args()
	if channelFlag == "" && len(args) == 1 {
		channelFlag = args[0]
	} else if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if channelFlag == "" {
		return fmt.Errorf("a channel is required: canopy-watch '#general'")
	}
	channelID, err := ref.ParseChannelID(channelFlag)
	if err != nil {
		return err
	}

	return watch(ctx, configPath, channelID, recordPath)
}

func watch(ctx context.Context, configPath string, channelID ref.ChannelID, recordPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	userID, err := ref.ParseUserID(cfg.API.UserID)
	if err != nil {
		return fmt.Errorf("api.user_id: %w", err)
	}
	token, err := cfg.BearerToken()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := chatapi.NewClient(chatapi.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	session, err := client.Connect(userID, token)
	if err != nil {
		return err
	}
	channel := session.Channel(channelID)

	state, err := channel.Watch(ctx, chatapi.WatchOptions{MessageLimit: 1})
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := channel.StopWatching(stopCtx); err != nil {
			logger.Warn("stop watching failed", "error", err)
		}
	}()

	var recorder *chatapi.Recorder
	if recordPath != "" {
		captureFile, err := os.OpenFile(recordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening capture file: %w", err)
		}
		defer captureFile.Close()
		recorder = chatapi.NewRecorder(captureFile)
	}

	printer := newEventPrinter()
	fmt.Printf("watching %s (%d watchers)\n", channelID, state.WatcherCount)

	stream := chatapi.StreamEvents(channel, state.EventToken)
	for {
		event, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if recorder != nil {
			if err := recorder.Record(event); err != nil {
				return fmt.Errorf("recording event: %w", err)
			}
		}
		printer.print(time.Now(), event)
	}
}

func replay(ctx context.Context, path string) error {
	captureFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer captureFile.Close()

	printer := newEventPrinter()
	stream := chatapi.NewReplayStream(captureFile)
	for {
		event, observedAt, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		printer.print(observedAt, event)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// eventPrinter writes one line per event. Kinds are dimmed when
// stdout is a terminal so the payload stands out.
type eventPrinter struct {
	dim   string
	reset string
}

func newEventPrinter() *eventPrinter {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return &eventPrinter{dim: "\x1b[2m", reset: "\x1b[0m"}
	}
	return &eventPrinter{}
}

func (p *eventPrinter) print(at time.Time, event chatapi.Event) {
	fmt.Printf("%s%s %-20s%s %s\n",
		p.dim, at.Format(time.RFC3339), event.Kind(), p.reset, describe(event))
}

// describe summarizes an event's payload for the line format.
func describe(event chatapi.Event) string {
	switch event := event.(type) {
	case chatapi.MessageNew:
		return fmt.Sprintf("%s %s: %s", event.Message.ID, event.Message.User.ID, event.Message.Text)
	case chatapi.MessageUpdated:
		return fmt.Sprintf("%s %s: %s", event.Message.ID, event.Message.User.ID, event.Message.Text)
	case chatapi.MessageDeleted:
		return event.MessageID.String()
	case chatapi.ReactionNew:
		return fmt.Sprintf("%s %s :%s:", event.MessageID, event.Reaction.UserID, event.Reaction.Type)
	case chatapi.ReactionDeleted:
		return fmt.Sprintf("%s %s :%s:", event.MessageID, event.Reaction.UserID, event.Reaction.Type)
	case chatapi.MessageRead:
		return fmt.Sprintf("%s read %s", event.Marker.UserID, event.Marker.LastReadID)
	case chatapi.MemberAdded:
		return event.Member.User.ID.String()
	case chatapi.MemberRemoved:
		return event.UserID.String()
	case chatapi.WatchStarted:
		return fmt.Sprintf("%s (%d watching)", event.Watcher.User.ID, event.WatcherCount)
	case chatapi.WatchStopped:
		return fmt.Sprintf("%s (%d watching)", event.UserID, event.WatcherCount)
	case chatapi.ConnectionRecovered:
		return "event feed gap; state refetch recommended"
	case chatapi.UnknownEvent:
		return fmt.Sprintf("unrecognized wire kind %q", event.WireKind)
	default:
		return ""
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Canopy channel watcher — print a channel's event feed.

Connects to the backend named in the config file, watches the channel,
and prints one line per event. Interrupt (Ctrl-C) to stop; the watch
is released on exit.

Usage:
  canopy-watch [flags] <channel>

Examples:
  # Watch a channel
  canopy-watch '#general'

  # Capture events for later replay
  canopy-watch --record events.cbor '#general'

  # Print a capture without connecting
  canopy-watch --replay events.cbor

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
