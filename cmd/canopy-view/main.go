// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// canopy-view is the interactive terminal UI for a single Canopy
// channel. It connects to the chat backend, watches the channel, and
// renders a live timeline with optimistic sends, threads, and mention
// autocomplete.
//
// Configuration comes from the file named by CANOPY_CONFIG or the
// --config flag; see the config package for the format. Theme and key
// binding overrides come from the JSONC files referenced in the
// config's ui section.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/canopy-chat/canopy/channelview"
	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/chatui"
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
	var logOutput string

	flagSet := pflag.NewFlagSet("canopy-view", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (default: $CANOPY_CONFIG)")
	flagSet.StringVar(&channelFlag, "channel", "", "channel ID, e.g. #general")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Canopy binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("canopy-view")
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

	args := flagSet.Args()
	if channelFlag == "" && len(args) == 1 {
		channelFlag = args[0]
	} else if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if channelFlag == "" {
		return fmt.Errorf("a channel is required: canopy-view '#general'")
	}
	channelID, err := ref.ParseChannelID(channelFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI; logs go to a file or nowhere.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if logOutput != "" {
		logFile, err := os.OpenFile(logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log output: %w", err)
		}
		defer logFile.Close()
		logger = slog.New(slog.NewJSONHandler(logFile, nil))
	}

	view, err := openChannelView(cfg, channelID, logger)
	if err != nil {
		return err
	}
	defer view.Stop()

	model := chatui.NewModel(view)
	if err := customizeUI(&model, cfg); err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	_, err = program.Run()
	return err
}

// loadConfig loads from the --config path when given, otherwise from
// CANOPY_CONFIG.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// openChannelView connects to the backend and starts a channel view
// with the configured page sizes and notification TTL.
func openChannelView(cfg *config.Config, channelID ref.ChannelID, logger *slog.Logger) (*channelview.View, error) {
	userID, err := ref.ParseUserID(cfg.API.UserID)
	if err != nil {
		return nil, fmt.Errorf("api.user_id: %w", err)
	}
	token, err := cfg.BearerToken()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Channel.NotificationTTLDuration()
	if err != nil {
		return nil, err
	}

	client, err := chatapi.NewClient(chatapi.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	session, err := client.Connect(userID, token)
	if err != nil {
		return nil, err
	}

	view, err := channelview.New(session.Channel(channelID), channelview.Options{
		User:            userID,
		PageSize:        cfg.Channel.PageSize,
		ThreadPageSize:  cfg.Channel.ThreadPageSize,
		NotificationTTL: ttl,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	if err := view.Start(context.Background()); err != nil {
		return nil, err
	}
	return view, nil
}

// customizeUI applies the theme and keymap override files from the
// config, when present.
func customizeUI(model *chatui.Model, cfg *config.Config) error {
	if cfg.UI.ThemeFile != "" {
		overrides, err := config.LoadThemeOverrides(cfg.UI.ThemeFile)
		if err != nil {
			return err
		}
		theme, err := chatui.ApplyThemeOverrides(chatui.DefaultTheme, overrides)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.UI.ThemeFile, err)
		}
		model.SetTheme(theme)
	}
	if cfg.UI.KeymapFile != "" {
		overrides, err := config.LoadKeymapOverrides(cfg.UI.KeymapFile)
		if err != nil {
			return err
		}
		keys, err := chatui.ApplyKeymapOverrides(chatui.DefaultKeyMap, overrides)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.UI.KeymapFile, err)
		}
		model.SetKeyMap(keys)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Canopy channel viewer — interactive terminal UI for a chat channel.

Connects to the backend named in the config file, watches the channel,
and renders a live timeline. Sends are optimistic: they appear
immediately and reconcile when the server confirms.

Usage:
  canopy-view [flags] <channel>

Examples:
  # Open a channel using $CANOPY_CONFIG
  canopy-view '#general'

  # Explicit config file
  canopy-view --config ./canopy.yaml --channel '#general'

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
