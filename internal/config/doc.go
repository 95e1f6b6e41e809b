// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for streamchat.
//
// Supports TOML, YAML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Chat service address and stream negotiation
//   - ChatConfig: Welcome, fallback and title settings
//   - LogConfig: zap logger level, encoding and output file
//   - UIConfig: Terminal UI appearance
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (STREAMCHAT_*)
//   - The file named by --config
//   - ~/.streamchat/config.toml
//   - ~/.streamchat/config.yaml
//   - ~/.streamchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := backend.NewClient(cfg.Backend.BaseURL)
//
// Watch reloads a config file whenever it changes on disk.
package config
