// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP clients for the chat service.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// IDENTITY TYPES
// =============================================================================

const (
	identityPath = "/api/cp/admins/current"

	// DefaultIdentityTTL is how long a fetched identity stays fresh.
	DefaultIdentityTTL = 5 * time.Minute

	// DefaultIdentityRetries is the number of retries after a failed fetch.
	DefaultIdentityRetries = 1

	// FallbackUserName is shown when no identity is available.
	FallbackUserName = "User"
)

// AdminRole is a role granted to an admin.
type AdminRole struct {
	ID              int     `json:"id"`
	ReferenceNumber int     `json:"reference_number"`
	Name            string  `json:"name"`
	NameL1          *string `json:"name_l1"`
	Slug            string  `json:"slug"`
	Description     string  `json:"description"`
	DescriptionL1   *string `json:"description_l1"`
}

// Admin is the signed-in user as reported by the identity endpoint.
type Admin struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	NameL1        *string         `json:"name_l1"`
	Email         string          `json:"email"`
	Mobile        *string         `json:"mobile"`
	WhatsApp      *string         `json:"whatsapp"`
	IsActive      bool            `json:"is_active"`
	PermissionMap map[string]bool `json:"permission_map"`
	ProfileImage  *string         `json:"profile_image"`
	Roles         []AdminRole     `json:"roles"`
}

// DisplayName returns the admin name, or FallbackUserName.
func (a *Admin) DisplayName() string {
	if a == nil || a.Name == "" {
		return FallbackUserName
	}
	return a.Name
}

// HasPermission reports whether the admin holds perm, or "all".
func (a *Admin) HasPermission(perm string) bool {
	if a == nil {
		return false
	}
	return a.PermissionMap["all"] || a.PermissionMap[perm]
}

// CurrentAdminResponse is the identity endpoint body.
type CurrentAdminResponse struct {
	Admin   Admin `json:"admin"`
	Success bool  `json:"success"`
}

// =============================================================================
// IDENTITY CLIENT
// =============================================================================

// IdentityClient fetches the current admin and caches it for a TTL.
type IdentityClient struct {
	client  *Client
	ttl     time.Duration
	retries int
	now     func() time.Time

	mu        sync.Mutex
	cached    *Admin
	fetchedAt time.Time
}

// NewIdentityClient wraps client. ttl <= 0 selects DefaultIdentityTTL and
// a negative retries selects DefaultIdentityRetries.
func NewIdentityClient(client *Client, ttl time.Duration, retries int) *IdentityClient {
	if ttl <= 0 {
		ttl = DefaultIdentityTTL
	}
	if retries < 0 {
		retries = DefaultIdentityRetries
	}
	return &IdentityClient{
		client:  client,
		ttl:     ttl,
		retries: retries,
		now:     time.Now,
	}
}

// Current returns the signed-in admin. Failures wrap
// ErrIdentityUnavailable.
func (ic *IdentityClient) Current(ctx context.Context) (*Admin, error) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.cached != nil && ic.now().Sub(ic.fetchedAt) < ic.ttl {
		return ic.cached, nil
	}

	var lastErr error
	for attempt := 0; attempt <= ic.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
		}
		admin, err := ic.fetch(ctx)
		if err == nil {
			ic.cached = admin
			ic.fetchedAt = ic.now()
			return admin, nil
		}
		lastErr = err
		ic.client.logger.Debug("identity fetch failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, lastErr)
}

// DisplayName returns the current admin's name, or FallbackUserName on
// any failure.
func (ic *IdentityClient) DisplayName(ctx context.Context) string {
	admin, err := ic.Current(ctx)
	if err != nil {
		return FallbackUserName
	}
	return admin.DisplayName()
}

// Invalidate drops the cached identity.
func (ic *IdentityClient) Invalidate() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.cached = nil
	ic.fetchedAt = time.Time{}
}

func (ic *IdentityClient) fetch(ctx context.Context) (*Admin, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ic.client.BaseURL()+identityPath, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := ic.client.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "identity request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ClientError{
			Type:    ErrTypeStatus,
			Status:  resp.StatusCode,
			Message: "failed to fetch current user",
		}
	}

	var body CurrentAdminResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ClientError{Type: ErrTypeDecode, Message: "invalid identity response", Cause: err}
	}
	return &body.Admin, nil
}
