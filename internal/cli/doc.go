// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli implements the streamchat command tree.

# Commands

	streamchat                  Start the TUI (same as "streamchat tui")
	streamchat tui              Full-screen chat with a session sidebar
	streamchat chat             Line-mode chat REPL with history
	streamchat ask QUESTION     One question, one answer, then exit
	streamchat whoami           Show the signed-in user
	streamchat config show      Print the effective configuration
	streamchat config path      Print the config file location
	streamchat config init      Write the default config file
	streamchat config get KEY   Print one value (dot notation)
	streamchat config set KEY V Change one value and save

# Global Flags

	--config PATH     Config file (default: ~/.streamchat/config.toml)
	--base-url URL    Override backend.base_url
	--log-level LVL   Override log.level
	--json            Machine-readable output where supported

# Exit Codes

Errors map to exit codes by category; see GetExitCode.
*/
package cli
