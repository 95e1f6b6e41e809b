// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across streamchat.
package util

import (
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// NormalizeBaseURL prepends "http://" to a base URL that has no http(s)
// scheme and strips trailing slashes. An empty (or blank) input yields
// fallback, which is normalized the same way.
func NormalizeBaseURL(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = strings.TrimSpace(fallback)
		if raw == "" {
			return ""
		}
	}
	if !schemePattern.MatchString(raw) {
		raw = "http://" + raw
	}
	return strings.TrimRight(raw, "/")
}
