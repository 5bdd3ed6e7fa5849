// Package adminapi provides a client for the Warden gateway admin surface.
package adminapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the gateway's /admin endpoints with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Agent mirrors the gateway's agent representation. The secret hash is
// never returned by the API.
type Agent struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Owner          string     `json:"owner"`
	Scopes         []string   `json:"scopes"`
	RateLimitRPM   int        `json:"rate_limit_rpm"`
	RateLimitDaily int        `json:"rate_limit_daily"`
	Enabled        bool       `json:"enabled"`
	RequestCount   int64      `json:"request_count"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AuditEntry mirrors one gateway audit log row.
type AuditEntry struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	AgentName     string    `json:"agent_name"`
	TargetService string    `json:"target_service"`
	Action        string    `json:"action"`
	AuthMethod    string    `json:"auth_method"`
	AuthResult    string    `json:"auth_result"`
	EventType     string    `json:"event_type"`
	TenantID      string    `json:"tenant_id,omitempty"`
	LatencyMs     int64     `json:"latency_ms"`
	ErrorCode     string    `json:"error_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateAgentRequest is the body of POST /admin/agents.
type CreateAgentRequest struct {
	Name           string   `json:"name"`
	Owner          string   `json:"owner"`
	Scopes         []string `json:"scopes"`
	RateLimitRPM   int      `json:"rate_limit_rpm,omitempty"`
	RateLimitDaily int      `json:"rate_limit_daily,omitempty"`
}

// CreateAgentResponse carries the plaintext secret, shown exactly once.
type CreateAgentResponse struct {
	Agent  Agent  `json:"agent"`
	Secret string `json:"secret"`
}

type apiErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates an admin API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateAgent registers a new agent and returns it with its secret.
func (c *Client) CreateAgent(req *CreateAgentRequest) (*CreateAgentResponse, error) {
	var resp CreateAgentResponse
	if err := c.do("POST", "/admin/agents", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAgents returns all registered agents.
func (c *Client) ListAgents() ([]Agent, error) {
	var resp struct {
		Agents []Agent `json:"agents"`
	}
	if err := c.do("GET", "/admin/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// DisableAgent soft-deletes an agent by id.
func (c *Client) DisableAgent(id string) error {
	return c.do("DELETE", "/admin/agents/"+url.PathEscape(id), nil, nil)
}

// QueryLogs returns audit entries filtered by agent and service.
func (c *Client) QueryLogs(agentID, service string, limit, offset int) ([]AuditEntry, error) {
	query := url.Values{}
	if agentID != "" {
		query.Set("agent_id", agentID)
	}
	if service != "" {
		query.Set("service", service)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	path := "/admin/logs"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp struct {
		Logs []AuditEntry `json:"logs"`
	}
	if err := c.do("GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiErrorBody
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Code != "" {
			return fmt.Errorf("%s: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
