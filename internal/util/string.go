// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across streamchat.
package util

import "unicode/utf8"

// Ellipsis is the marker appended to truncated text.
const Ellipsis = "..."

// Ellipsize returns the first maxRunes runes of s, followed by Ellipsis when
// anything was cut. Unlike TruncateRunes the marker is not counted against
// the limit, so a cut result is maxRunes+3 runes long.
func Ellipsize(s string, maxRunes int) string {
	if maxRunes <= 0 {
		if s == "" {
			return ""
		}
		return Ellipsis
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + Ellipsis
}

// TruncateRunes truncates s to at most maxRunes runes, including the
// trailing Ellipsis when the string was cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= len(Ellipsis) {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-len(Ellipsis)]) + Ellipsis
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
