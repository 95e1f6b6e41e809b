// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into display text.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"strings"
)

// =============================================================================
// FORMAT
// =============================================================================

// Format identifies the framing of a response body.
type Format int

const (
	// FormatNDJSON is one JSON object per newline-terminated line.
	FormatNDJSON Format = iota
	// FormatSSE is text/event-stream with JSON in "data:" fields.
	FormatSSE
	// FormatJSON is a single JSON object spanning the whole body.
	FormatJSON
)

// String returns the media type for the format.
func (f Format) String() string {
	switch f {
	case FormatSSE:
		return "text/event-stream"
	case FormatJSON:
		return "application/json"
	default:
		return "application/x-ndjson"
	}
}

// FormatForContentType maps a Content-Type header to a Format. Unknown or
// missing types are treated as NDJSON.
func FormatForContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "text/event-stream":
		return FormatSSE
	case "application/json":
		return FormatJSON
	default:
		return FormatNDJSON
	}
}

// =============================================================================
// RECORD
// =============================================================================

// Record is one well-formed line of the stream.
type Record struct {
	// Raw is the line as received, without its terminator.
	Raw []byte
	// Message is the cumulative text carried by the line. Never empty.
	Message string
}

// wireRecord is the JSON shape of a line.
type wireRecord struct {
	Message string `json:"message"`
}

// parseRecord returns ok=false for lines that must be skipped.
func parseRecord(raw []byte) (Record, bool) {
	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return Record{}, false
	}
	if w.Message == "" {
		return Record{}, false
	}
	return Record{Raw: raw, Message: w.Message}, true
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder splits a byte stream into line records. It is not safe for
// concurrent use.
type Decoder struct {
	format  Format
	pending []byte
	skipped int
}

// NewDecoder creates a decoder for the given line framing. FormatJSON
// decoders split lines like FormatNDJSON; use DecodeJSONBody for whole
// bodies.
func NewDecoder(format Format) *Decoder {
	return &Decoder{format: format}
}

// Feed consumes one transport chunk and returns the records completed by
// it, in arrival order. Any trailing partial line is retained.
func (d *Decoder) Feed(chunk []byte) []Record {
	if len(chunk) == 0 {
		return nil
	}
	d.pending = append(d.pending, chunk...)

	var out []Record
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := d.pending[:i]
		if rec, ok := d.line(line); ok {
			out = append(out, rec)
		}
		d.pending = d.pending[i+1:]
	}

	// Compact so the buffer doesn't pin already-consumed chunks
	if len(d.pending) == 0 {
		d.pending = nil
	} else if cap(d.pending) > 2*len(d.pending)+4096 {
		d.pending = append([]byte(nil), d.pending...)
	}
	return out
}

// Flush emits the unterminated suffix as a final record, if it parses,
// and resets the buffer.
func (d *Decoder) Flush() []Record {
	line := d.pending
	d.pending = nil
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	if rec, ok := d.line(line); ok {
		return []Record{rec}
	}
	return nil
}

// Pending returns the number of buffered bytes not yet terminated.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// Skipped returns how many non-blank lines were dropped as malformed or
// empty.
func (d *Decoder) Skipped() int {
	return d.skipped
}

func (d *Decoder) line(line []byte) (Record, bool) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return Record{}, false
	}

	payload := line
	if d.format == FormatSSE {
		var ok bool
		payload, ok = sseData(line)
		if !ok {
			return Record{}, false
		}
	}

	// Copy so records never alias the reusable buffer
	raw := append([]byte(nil), payload...)
	rec, ok := parseRecord(raw)
	if !ok {
		d.skipped++
	}
	return rec, ok
}

// sseData extracts the payload of a "data:" field. Comments, other fields
// and the [DONE] sentinel are ignored without counting as skips.
func sseData(line []byte) ([]byte, bool) {
	if line[0] == ':' {
		return nil, false
	}
	data, found := bytes.CutPrefix(line, []byte("data:"))
	if !found {
		return nil, false
	}
	data = bytes.TrimPrefix(data, []byte(" "))
	if string(bytes.TrimSpace(data)) == "[DONE]" {
		return nil, false
	}
	return data, true
}

// =============================================================================
// READER HELPERS
// =============================================================================

const readChunkSize = 4096

// Decode reads r until EOF, passing each record to fn in order. It stops
// early when ctx is done or fn returns an error. A read error other than
// io.EOF is returned as-is so callers can tell truncation from completion.
func Decode(ctx context.Context, r io.Reader, format Format, fn func(Record) error) error {
	if format == FormatJSON {
		return decodeJSON(ctx, r, fn)
	}

	dec := NewDecoder(format)
	buf := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			for _, rec := range dec.Feed(buf[:n]) {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(rec); err != nil {
					return err
				}
			}
		}

		if readErr == io.EOF {
			for _, rec := range dec.Flush() {
				if err := fn(rec); err != nil {
					return err
				}
			}
			return nil
		}
		if readErr != nil {
			// A cancelled request surfaces as a read error
			if err := ctx.Err(); err != nil {
				return err
			}
			return readErr
		}
	}
}

// DecodeJSONBody reads a whole body holding a single JSON object. ok is
// false when the body is valid but carries no message.
func DecodeJSONBody(r io.Reader) (rec Record, ok bool, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Record{}, false, err
	}
	rec, ok = parseRecord(bytes.TrimSpace(raw))
	return rec, ok, nil
}

// decodeJSON handles application/json bodies. Servers that label NDJSON as
// JSON are tolerated by falling back to line splitting.
func decodeJSON(ctx context.Context, r io.Reader, fn func(Record) error) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw)
	if json.Valid(trimmed) {
		if rec, ok := parseRecord(trimmed); ok {
			return fn(rec)
		}
		return nil
	}

	dec := NewDecoder(FormatNDJSON)
	recs := append(dec.Feed(raw), dec.Flush()...)
	for _, rec := range recs {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}
