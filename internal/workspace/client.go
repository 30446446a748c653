// Package workspace is the HTTP client for the document-store service that
// persists organization profiles and grant records. The store exposes
// action-based endpoints; every response carries a success flag, and any
// non-success response is a hard failure for that operation.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joelkehle/grant-agency/internal/grantsearch"
)

const (
	profilesPath = "/api/profiles"
	grantsPath   = "/api/grants"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// envelope is the store's common response wrapper. Action-specific payload
// fields are decoded by each caller from the raw body.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (c *Client) doAction(ctx context.Context, path, action string, data any) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]any{"action": action, "data": data})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store %s %s: %w", path, action, err)
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("store %s %s failed status=%d body=%s", path, action, resp.StatusCode, string(blob))
	}
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("store %s %s: decoding response: %w", path, action, err)
	}
	if !env.Success {
		reason := env.Error
		if reason == "" {
			reason = "no reason given"
		}
		return nil, fmt.Errorf("store %s %s rejected: %s", path, action, reason)
	}
	return json.RawMessage(blob), nil
}

// FetchActiveProfile returns the profile flagged active, or ok=false when no
// profile is active yet. Having no active profile is a normal state for a
// fresh workspace, not an error.
func (c *Client) FetchActiveProfile(ctx context.Context) (Profile, bool, error) {
	raw, err := c.doAction(ctx, profilesPath, "get_active_profile", nil)
	if err != nil {
		return Profile{}, false, err
	}
	var resp struct {
		Profile *Profile `json:"profile"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Profile{}, false, fmt.Errorf("decoding active profile: %w", err)
	}
	if resp.Profile == nil || resp.Profile.ID == "" {
		return Profile{}, false, nil
	}
	return *resp.Profile, true, nil
}

// SaveProfile creates a new profile record and returns its id.
func (c *Client) SaveProfile(ctx context.Context, p Profile) (string, error) {
	raw, err := c.doAction(ctx, profilesPath, "save_profile", map[string]any{"profile": p})
	if err != nil {
		return "", err
	}
	var resp struct {
		ProfileID string `json:"profileId"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decoding save_profile response: %w", err)
	}
	if strings.TrimSpace(resp.ProfileID) == "" {
		return "", fmt.Errorf("missing profileId in save_profile response")
	}
	return resp.ProfileID, nil
}

// UpdateProfileFields writes a partial field update to one profile record.
func (c *Client) UpdateProfileFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	_, err := c.doAction(ctx, profilesPath, "update_profile", map[string]any{
		"profileId": id,
		"updates":   fields,
	})
	return err
}

// SetActiveProfile flips the active flag to the given profile.
func (c *Client) SetActiveProfile(ctx context.Context, id string) error {
	_, err := c.doAction(ctx, profilesPath, "set_active_profile", map[string]any{"profileId": id})
	return err
}

// StoredGrant is a grant record as returned by store queries.
type StoredGrant struct {
	ID string `json:"id"`
	grantsearch.Grant
}

// CreateGrant persists one grant record and returns its id.
func (c *Client) CreateGrant(ctx context.Context, g grantsearch.Grant) (string, error) {
	raw, err := c.doAction(ctx, grantsPath, "save_grants", map[string]any{
		"grants": []grantsearch.Grant{g},
	})
	if err != nil {
		return "", err
	}
	var resp struct {
		GrantIDs []string `json:"grantIds"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decoding save_grants response: %w", err)
	}
	if len(resp.GrantIDs) == 0 {
		return "", fmt.Errorf("missing grantIds in save_grants response")
	}
	return resp.GrantIDs[0], nil
}

// GrantExists looks a grant up by exact name and returns its id when found.
func (c *Client) GrantExists(ctx context.Context, name string) (string, bool, error) {
	raw, err := c.doAction(ctx, grantsPath, "get_grant_by_name", map[string]any{"grantName": name})
	if err != nil {
		return "", false, err
	}
	var resp struct {
		Grant *StoredGrant `json:"grant"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", false, fmt.Errorf("decoding get_grant_by_name response: %w", err)
	}
	if resp.Grant == nil || resp.Grant.ID == "" {
		return "", false, nil
	}
	return resp.Grant.ID, true, nil
}

// QueryGrants lists stored grants, optionally filtered by status. limit <= 0
// means the store's default page size.
func (c *Client) QueryGrants(ctx context.Context, status string, limit int) ([]StoredGrant, error) {
	filters := map[string]any{}
	if status != "" {
		filters["status"] = status
	}
	if limit > 0 {
		filters["limit"] = limit
	}
	raw, err := c.doAction(ctx, grantsPath, "get_grants", map[string]any{"filters": filters})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Grants []StoredGrant `json:"grants"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding get_grants response: %w", err)
	}
	return resp.Grants, nil
}

// UpdateGrantStatus moves one grant record to a new lifecycle status.
func (c *Client) UpdateGrantStatus(ctx context.Context, id, status string) error {
	_, err := c.doAction(ctx, grantsPath, "update_grant_status", map[string]any{
		"grantId": id,
		"status":  status,
	})
	return err
}
