// Package client talks to the BubbleTasks HTTP API and mirrors the server's
// task list in a Board.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
)

// DefaultBaseURL is the API root of a locally running server.
const DefaultBaseURL = "http://localhost:3001/api"

const defaultTimeout = 15 * time.Second

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
	TraceID    string
}

// Error returns the server's message, which is safe to show to users.
func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.StatusCode)
	}
	return e.Message
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// FinishResult is the server's answer to complete and cancel.
type FinishResult struct {
	Task      *domain.Task `json:"task"`
	Activated *domain.Task `json:"activated,omitempty"`
}

// UploadResult describes a stored image.
type UploadResult struct {
	ImageURL string `json:"imageUrl"`
	Filename string `json:"filename"`
}

// Health is the server health payload.
type Health struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Storage   string    `json:"storage"`
}

// envelope is the union of all success and error bodies.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	TraceID string `json:"traceId"`

	Tasks     []*domain.Task `json:"tasks"`
	Task      *domain.Task   `json:"task"`
	Activated *domain.Task   `json:"activated"`
	ImageURL  string         `json:"imageUrl"`
	Filename  string         `json:"filename"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Storage   string         `json:"storage"`
}

// CreateTaskParams are the fields of a new task. Zero EstMinutes lets the
// server apply its default.
type CreateTaskParams struct {
	Title        string `json:"title"`
	EstMinutes   int    `json:"estMinutes,omitempty"`
	ImageDataURL string `json:"imageDataUrl,omitempty"`
}

// TaskUpdate is a partial update. Nil fields are not sent.
type TaskUpdate struct {
	Title            *string
	EstMinutes       *int
	Status           *domain.TaskStatus
	ImageDataURL     *string
	RemainingSeconds *int
	TimerStartedAt   *time.Time

	// ClearImage sends imageDataUrl: null.
	ClearImage bool
	// ClearTimerStartedAt sends timerStartedAt: null.
	ClearTimerStartedAt bool
}

// MarshalJSON encodes only the fields that are set.
func (u TaskUpdate) MarshalJSON() ([]byte, error) {
	body := make(map[string]any)
	if u.Title != nil {
		body["title"] = *u.Title
	}
	if u.EstMinutes != nil {
		body["estMinutes"] = *u.EstMinutes
	}
	if u.Status != nil {
		body["status"] = *u.Status
	}
	switch {
	case u.ClearImage:
		body["imageDataUrl"] = nil
	case u.ImageDataURL != nil:
		body["imageDataUrl"] = *u.ImageDataURL
	}
	if u.RemainingSeconds != nil {
		body["remainingSeconds"] = *u.RemainingSeconds
	}
	switch {
	case u.ClearTimerStartedAt:
		body["timerStartedAt"] = nil
	case u.TimerStartedAt != nil:
		body["timerStartedAt"] = u.TimerStartedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(body)
}

// Client is an HTTP client for the task API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client for the API rooted at baseURL, e.g.
// "http://localhost:3001/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api_client")
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListTasks returns the tasks in scope.
func (c *Client) ListTasks(ctx context.Context, scope domain.Scope) ([]*domain.Task, error) {
	path := "/tasks"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(string(scope))
	}
	env, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if env.Tasks == nil {
		env.Tasks = []*domain.Task{}
	}
	return env.Tasks, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, params CreateTaskParams) (*domain.Task, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/tasks", params)
	if err != nil {
		return nil, err
	}
	return env.Task, nil
}

// UpdateTask applies a partial update and returns the server's version.
func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, update TaskUpdate) (*domain.Task, error) {
	env, err := c.doJSON(ctx, http.MethodPut, "/tasks/"+id.String(), update)
	if err != nil {
		return nil, err
	}
	return env.Task, nil
}

// DeleteTask deletes a task and returns its last state.
func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	env, err := c.doJSON(ctx, http.MethodDelete, "/tasks/"+id.String(), nil)
	if err != nil {
		return nil, err
	}
	return env.Task, nil
}

// CompleteTask completes a task on the server, which promotes the next one.
func (c *Client) CompleteTask(ctx context.Context, id uuid.UUID) (*FinishResult, error) {
	return c.finish(ctx, id, "complete")
}

// CancelTask cancels a task on the server, which promotes the next one.
func (c *Client) CancelTask(ctx context.Context, id uuid.UUID) (*FinishResult, error) {
	return c.finish(ctx, id, "cancel")
}

func (c *Client) finish(ctx context.Context, id uuid.UUID, action string) (*FinishResult, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/tasks/"+id.String()+"/"+action, nil)
	if err != nil {
		return nil, err
	}
	return &FinishResult{Task: env.Task, Activated: env.Activated}, nil
}

// UploadImage uploads an icon image read from r.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return &UploadResult{ImageURL: env.ImageURL, Filename: env.Filename}, nil
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	return &Health{Message: env.Message, Timestamp: env.Timestamp, Storage: env.Storage}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("%s %s: failed to decode response: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Error, TraceID: env.TraceID}
		c.logger.Debug("API request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"trace_id", env.TraceID)
		return nil, apiErr
	}
	return &env, nil
}
