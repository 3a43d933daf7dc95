/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storycore/internal/domain"
)

// Client is a minimal HTTP client for the sync API. Project references are
// either the numeric server id or the stable project id from grid.json.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new sync client. baseURL may include a trailing slash;
// it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var body *bytes.Buffer
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewBuffer(b)
	} else {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// FetchToken asks the server for a bearer token and stores it on the client.
// The token endpoint itself requires no auth.
func (c *Client) FetchToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	in := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	var out struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", in, &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

// Project is a minimal projection for listing.
type Project struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListProjects returns available projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var list []Project
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GridSnapshotEnvelope matches the server response for the latest grid
// snapshot of a project. Grid is the raw manifest JSON as pushed.
type GridSnapshotEnvelope struct {
	ProjectID int64           `json:"project_id"`
	StableID  string          `json:"stable_id"`
	Version   int64           `json:"version"`
	CreatedAt string          `json:"created_at"`
	Grid      json.RawMessage `json:"grid"`
}

// GetGridSnapshot fetches the latest grid snapshot for a project.
func (c *Client) GetGridSnapshot(ctx context.Context, project string) (*GridSnapshotEnvelope, error) {
	var env GridSnapshotEnvelope
	p := fmt.Sprintf("/api/projects/%s/grid", url.PathEscape(project))
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// PushResult reports the server-side state after an accepted push.
type PushResult struct {
	ProjectID int64  `json:"project_id"`
	StableID  string `json:"stable_id"`
	Version   int64  `json:"version"`
}

// PushGrid uploads a grid as the project's next snapshot. Pushing to a
// stable id the server has not seen creates the project.
func (c *Client) PushGrid(ctx context.Context, project string, grid domain.GridConfiguration) (*PushResult, error) {
	var res PushResult
	p := fmt.Sprintf("/api/projects/%s/grid", url.PathEscape(project))
	if err := c.doJSON(ctx, http.MethodPut, p, grid, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
