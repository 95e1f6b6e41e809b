// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat session transcripts to disk.
//
// # Supported Formats
//
//   - Markdown: human-readable, with an optional YAML frontmatter block
//   - JSON: the session as stored, for scripting
//
// # Usage
//
//	exporter, err := export.ForFormat("md", nil)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ToFile(session, exporter, nil)
//
// Files are named transcript_<title>_<timestamp><ext> and written
// atomically into Options.OutputDir.
package export
