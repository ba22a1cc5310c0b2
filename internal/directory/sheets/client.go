// Package sheets adapts a published spreadsheet's CSV export into directory
// members. It stays schema-agnostic: the first row names the columns,
// every following row becomes one member keyed by those names.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"rosterd/internal/directory"
)

// Client fetches the sheet's CSV export over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and parses the sheet. An unconfigured URL is reported as
// an upstream failure so the caller surfaces it the same way as an outage.
func (c *Client) Fetch(ctx context.Context) ([]directory.Member, error) {
	if c.url == "" {
		return nil, fmt.Errorf("directory sheet URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: upstream returned %s", resp.Status)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse sheet CSV: %w", err)
	}
	if len(rows) == 0 {
		return []directory.Member{}, nil
	}

	headers := rows[0]
	members := make([]directory.Member, 0, len(rows)-1)
	for _, row := range rows[1:] {
		member := make(directory.Member, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(row) {
				member[header] = row[i]
			} else {
				member[header] = ""
			}
		}
		members = append(members, member)
	}
	return members, nil
}
