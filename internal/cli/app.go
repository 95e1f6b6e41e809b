// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/backend"
	"github.com/jeranaias/streamchat/internal/chat"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/session"
)

// app is the wired object graph shared by the chat commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *backend.Client
	identity *backend.IdentityClient
	store    *session.Store
	orch     *chat.Orchestrator
}

// newApp builds the client, store and orchestrator from the loaded
// configuration. The store starts with one current session.
func newApp(opts *rootOptions) *app {
	cfg, logger := opts.cfg, opts.logger
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:        cfg.Backend.BaseURL,
		Accept:         cfg.Backend.Accept,
		ConnectTimeout: cfg.Backend.ConnectTimeout(),
		UserAgent:      "streamchat/" + Version,
		Logger:         logger.Named("backend"),
	})

	var identity *backend.IdentityClient
	if cfg.Identity.Enabled {
		identity = backend.NewIdentityClient(client, cfg.Identity.CacheTTL(), cfg.Identity.Retries)
	}

	store := session.NewStore(
		session.WithWelcomeMessage(cfg.Chat.WelcomeMessage),
		session.WithTitleMaxRunes(cfg.Chat.TitleMaxRunes),
		session.WithLogger(logger.Named("session")),
	)
	store.Create()

	orch := chat.New(store, client, chat.Config{
		FallbackMessage: cfg.Chat.FallbackMessage,
		FreshDuration:   cfg.Chat.FreshDuration(),
		Logger:          logger.Named("chat"),
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		identity: identity,
		store:    store,
		orch:     orch,
	}
}

// Close stops the orchestrator.
func (a *app) Close() {
	_ = a.orch.Close()
}
