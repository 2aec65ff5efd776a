package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vibe/internal/logging"
	"vibe/internal/types"
)

// codeQuotaExceeded is the server's envelope code for "plan limit reached"
// on project creation, distinct from HTTP-level failures.
const codeQuotaExceeded = 1

// Client talks to the builder backend. Every response is wrapped in a
// {code, info, data} envelope; code zero means success.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     logging.Logger
}

func New(baseURL, token string, log logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// RoutingKey obtains the one-time socket routing key for a project. The
// device value ends up in the key, so the server can tell client surfaces
// apart.
func (c *Client) RoutingKey(ctx context.Context, projectID, device string) (string, error) {
	var resp routingKeyResponse
	body := routingKeyRequest{ProjectID: projectID, Device: device}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/ws", body, &resp); err != nil {
		return "", err
	}
	if resp.Path == "" {
		return "", errors.New("api: empty routing key")
	}
	return resp.Path, nil
}

// History fetches one page of past events, newest pages first across calls.
// Within a page the server returns events time-ascending.
func (c *Client) History(ctx context.Context, projectID string, limit, offset int) ([]types.HistoryEvent, bool, error) {
	var resp historyResponse
	path := fmt.Sprintf("/api/v1/events/history/%s?limit=%d&offset=%d", url.PathEscape(projectID), limit, offset)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, false, err
	}
	hasMore := len(resp.Events) >= limit
	return resp.Events, hasMore, nil
}

func (c *Client) ClearHistory(ctx context.Context, projectID string) error {
	path := fmt.Sprintf("/api/v1/events/clear/%s", url.PathEscape(projectID))
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	if req.Type == "" {
		req.Type = ProjectTypeMiniapp
	}
	var resp Project
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/projects", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListProjects(ctx context.Context, page, limit int) ([]Project, error) {
	var resp projectListResponse
	path := fmt.Sprintf("/api/v1/projects?page=%d&limit=%d", page, limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var resp Project
	path := "/api/v1/projects/" + url.PathEscape(projectID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	path := fmt.Sprintf("/api/v1/projects/%s/delete", url.PathEscape(projectID))
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) RenameProject(ctx context.Context, projectID, name string) error {
	path := fmt.Sprintf("/api/v1/projects/%s/rename", url.PathEscape(projectID))
	return c.doJSON(ctx, http.MethodPost, path, renameProjectRequest{Name: name}, nil)
}

func (c *Client) StartProject(ctx context.Context, projectID string) error {
	path := fmt.Sprintf("/api/v1/projects/%s/start", url.PathEscape(projectID))
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) StopProject(ctx context.Context, projectID string) error {
	path := fmt.Sprintf("/api/v1/projects/%s/stop", url.PathEscape(projectID))
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// StopAgent interrupts the agent's current run. The backend models this as
// stopping the project.
func (c *Client) StopAgent(ctx context.Context, projectID string) error {
	return c.StopProject(ctx, projectID)
}

func (c *Client) Versions(ctx context.Context, projectID string) ([]Version, error) {
	var resp versionsResponse
	path := fmt.Sprintf("/api/v1/projects/%s/versions", url.PathEscape(projectID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

func (c *Client) RollbackVersion(ctx context.Context, projectID, versionID string) error {
	path := fmt.Sprintf("/api/v1/projects/%s/versions/%s/rollback", url.PathEscape(projectID), url.PathEscape(versionID))
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) CheckPayment(ctx context.Context, projectID, orderID string) (*PaymentStatus, error) {
	var resp PaymentStatus
	body := paymentCheckRequest{ProjectID: projectID, OrderID: orderID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/payment/check", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type envelope struct {
	Code int             `json:"code"`
	Info string          `json:"info"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	if env.Code != 0 {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Info}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func decodeAPIError(resp *http.Response) error {
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	msg := env.Info
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: msg}
}

// APIError carries both the HTTP status and the envelope code, since the
// server reports domain failures with 200s and a non-zero code.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d/%d): %s", e.StatusCode, e.Code, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsQuotaExceeded reports whether err is the project-quota rejection from
// CreateProject, which the UI turns into an upgrade prompt rather than a
// plain error.
func IsQuotaExceeded(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.Code == codeQuotaExceeded
}
