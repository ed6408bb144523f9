package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/gerritnav/internal/log"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 1 << 20
)

// xssiPrefix precedes every JSON body Gerrit serves.
var xssiPrefix = []byte(")]}'")

// Client resolves changes against a Gerrit server's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBasicAuth authenticates requests. Gerrit serves authenticated REST
// calls under the /a/ prefix.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// NewClient creates a client for the server at baseURL, for example
// https://review.example.org or https://example.org/gerrit.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type changeInfo struct {
	Number  int    `json:"_number"`
	Project string `json:"project"`
}

func (c *Client) changeQueryURL(changeNum int) string {
	prefix := c.baseURL
	if c.username != "" {
		prefix += "/a"
	}
	return prefix + "/changes/?q=change:" + strconv.Itoa(changeNum)
}

// ProjectFor queries /changes/?q=change:<n> and returns the first match's
// repository.
func (c *Client) ProjectFor(ctx context.Context, changeNum int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.changeQueryURL(changeNum), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query change %d: %w", changeNum, err)
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug(log.CatLookup, "change query", "change", changeNum, "status", resp.StatusCode, "elapsed", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", &NotFoundError{ChangeNum: changeNum}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("gerrit returned status %d for change %d", resp.StatusCode, changeNum)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	body = bytes.TrimPrefix(bytes.TrimSpace(body), xssiPrefix)

	var changes []changeInfo
	if err := json.Unmarshal(body, &changes); err != nil {
		return "", fmt.Errorf("failed to parse change query response: %w", err)
	}
	for _, ch := range changes {
		if ch.Project != "" && (ch.Number == 0 || ch.Number == changeNum) {
			return ch.Project, nil
		}
	}
	return "", &NotFoundError{ChangeNum: changeNum}
}
