// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/streamchat/internal/backend"
	"github.com/jeranaias/streamchat/internal/chat"
	"github.com/jeranaias/streamchat/internal/config"
)

// Options configures the TUI.
type Options struct {
	// Orchestrator runs the chat; required
	Orchestrator *chat.Orchestrator

	// Client receives base URL changes on config reload (optional)
	Client *backend.Client

	// Identity fills the sidebar footer (optional)
	Identity *backend.IdentityClient

	Config *config.Config

	// ConfigPath is watched for changes when set
	ConfigPath string

	Logger *zap.Logger

	// ProgramOptions are appended to the defaults (alt screen, context)
	ProgramOptions []tea.ProgramOption
}

// Run starts the TUI and blocks until the user quits or ctx is done. The
// config watcher runs next to the program and stops with it.
func Run(ctx context.Context, opts Options) error {
	if opts.Orchestrator == nil {
		return errors.New("tui: orchestrator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	m := New(runCtx, opts)
	progOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(runCtx)}, opts.ProgramOptions...)
	p := tea.NewProgram(m, progOpts...)

	n := newNotifier(p.Send, cfg.UI.MaxFPS)
	defer n.Close()
	unsubscribe := opts.Orchestrator.Subscribe(n.Publish)
	defer unsubscribe()

	g.Go(func() error {
		defer stop()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && runCtx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	})

	if opts.ConfigPath != "" {
		g.Go(func() error {
			err := config.Watch(runCtx, opts.ConfigPath, config.DefaultWatchDebounce, func(c *config.Config, err error) {
				if err != nil {
					logger.Warn("config reload failed", zap.Error(err))
				} else {
					logger.Info("config reloaded", zap.String("path", opts.ConfigPath))
				}
				p.Send(ConfigReloadMsg{Config: c, Err: err})
			})
			// The chat keeps working without hot reload
			if err != nil {
				logger.Warn("config watch stopped", zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}
