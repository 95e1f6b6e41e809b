// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into display text.
package stream

import "strings"

// =============================================================================
// RECONCILER
// =============================================================================

// Branch records which rule produced the last delta.
type Branch int

const (
	// BranchNone means Reconcile has not been called.
	BranchNone Branch = iota
	// BranchFirst means the baseline was empty.
	BranchFirst
	// BranchPrefix means the cumulative text extended the baseline.
	BranchPrefix
	// BranchContains means the baseline was found inside the cumulative text.
	BranchContains
	// BranchReset means no relation was found and the whole text was used.
	BranchReset
)

// String returns a short name for the branch.
func (b Branch) String() string {
	switch b {
	case BranchFirst:
		return "first"
	case BranchPrefix:
		return "prefix"
	case BranchContains:
		return "contains"
	case BranchReset:
		return "reset"
	default:
		return "none"
	}
}

// Reconciler derives display deltas from cumulative stream text. One
// Reconciler serves a single exchange; it is not safe for concurrent use.
type Reconciler struct {
	baseline string
	last     string
	seed     string
	applied  bool
	branch   Branch
	diverged int
}

// NewReconciler returns a reconciler with an empty baseline. seed, usually
// the preceding assistant message, becomes the baseline on the first call
// if nothing has been applied yet.
func NewReconciler(seed string) *Reconciler {
	return &Reconciler{seed: seed}
}

// Reconcile returns the text to display for the given cumulative fragment
// and advances the baseline to it. The result replaces, not extends, the
// previously displayed delta.
func (r *Reconciler) Reconcile(cumulative string) string {
	if r.baseline == "" && !r.applied && r.seed != "" {
		r.baseline = r.seed
	}

	var delta string
	switch {
	case r.baseline == "":
		delta = cumulative
		r.branch = BranchFirst
	case strings.HasPrefix(cumulative, r.baseline):
		delta = cumulative[len(r.baseline):]
		r.branch = BranchPrefix
	default:
		if i := strings.Index(cumulative, r.baseline); i >= 0 {
			delta = cumulative[i+len(r.baseline):]
			r.branch = BranchContains
		} else {
			delta = cumulative
			r.branch = BranchReset
			r.diverged++
		}
	}

	r.baseline = cumulative
	r.last = delta
	r.applied = true
	return delta
}

// Baseline returns the last cumulative text seen.
func (r *Reconciler) Baseline() string {
	return r.baseline
}

// Last returns the most recent delta. After the stream ends this is the
// text committed as the assistant reply.
func (r *Reconciler) Last() string {
	return r.last
}

// Applied reports whether any fragment has been reconciled.
func (r *Reconciler) Applied() bool {
	return r.applied
}

// LastBranch returns the rule used by the most recent call.
func (r *Reconciler) LastBranch() Branch {
	return r.branch
}

// Diverged returns how many fragments fell back to a full reset.
func (r *Reconciler) Diverged() int {
	return r.diverged
}
