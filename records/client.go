// Package records is the slice of the protected API surface the console
// client exposes. Every call here is issued through the authenticated
// request pipeline.
package records

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/scothinks/bioverify/authapi"
)

// MasterListRecord matches the backend MasterListRecordDto.
type MasterListRecord struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	BusinessUnit string    `json:"businessUnit"`
	GradeLevel   string    `json:"gradeLevel"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DashboardStats matches the backend DashboardStatsDto.
type DashboardStats struct {
	TotalUniqueRecords          int64 `json:"totalUniqueRecords"`
	TotalVerified               int64 `json:"totalVerified"`
	TotalValidated              int64 `json:"totalValidated"`
	TotalPendingApproval        int64 `json:"totalPendingApproval"`
	TotalMismatched             int64 `json:"totalMismatched"`
	TotalNotFound               int64 `json:"totalNotFound"`
	TotalAwaitingReVerification int64 `json:"totalAwaitingReVerification"`
	TotalReviewers              int64 `json:"totalReviewers"`
	TotalSelfServiceUsers       int64 `json:"totalSelfServiceUsers"`
	TotalAgentAccounts          int64 `json:"totalAgentAccounts"`
}

// Client issues protected API calls. httpc must carry the pipeline
// transport; anything else in the application that talks HTTP to the
// backend is expected to go through the same client.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, httpc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
	}
}

// CurrentUserRecord fetches the master-list record linked to the logged-in
// self-service user.
func (c *Client) CurrentUserRecord(ctx context.Context) (*MasterListRecord, error) {
	var record MasterListRecord
	if err := c.getJSON(ctx, "/api/v1/users/me/record", &record); err != nil {
		return nil, errors.Wrap(err, "[CurrentUserRecord] getJSON")
	}
	return &record, nil
}

// DashboardStats fetches the tenant dashboard counters.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.getJSON(ctx, "/api/v1/dashboard/stats", &stats); err != nil {
		return nil, errors.Wrap(err, "[DashboardStats] getJSON")
	}
	return &stats, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "[getJSON] NewRequest")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "[getJSON] Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &authapi.APIError{Status: resp.StatusCode}
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); readErr == nil {
			_ = json.Unmarshal(data, apiErr)
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[getJSON] Decode")
	}
	return nil
}
