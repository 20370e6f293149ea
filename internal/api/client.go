package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultClientTimeout = 30 * time.Second

// Client talks to the daemon HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a client for the daemon at baseURL. An empty token
// disables bearer auth.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Submit enqueues a script without a recording.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("encode submit request: %w", err)
	}
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", "application/json", bytes.NewReader(body), &resp); err != nil {
		return SubmitResponse{}, err
	}
	return resp, nil
}

// SubmitWithRecording enqueues a script alongside an uploaded narration
// recording using a multipart form.
func (c *Client) SubmitWithRecording(ctx context.Context, req SubmitRequest, recordingPath string) (SubmitResponse, error) {
	file, err := os.Open(recordingPath)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("script", req.Script); err != nil {
		return SubmitResponse{}, fmt.Errorf("write script field: %w", err)
	}
	optionsJSON, err := json.Marshal(req.Options)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("encode options: %w", err)
	}
	if err := writer.WriteField("options", string(optionsJSON)); err != nil {
		return SubmitResponse{}, fmt.Errorf("write options field: %w", err)
	}
	part, err := writer.CreateFormFile("recording", filepath.Base(recordingPath))
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("create recording part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return SubmitResponse{}, fmt.Errorf("copy recording: %w", err)
	}
	if err := writer.Close(); err != nil {
		return SubmitResponse{}, fmt.Errorf("finish multipart form: %w", err)
	}

	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", writer.FormDataContentType(), &buf, &resp); err != nil {
		return SubmitResponse{}, err
	}
	return resp, nil
}

// Jobs lists jobs newest first, capped at limit when positive.
func (c *Client) Jobs(ctx context.Context, limit int) ([]Job, error) {
	path := "/api/jobs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp JobListResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Job fetches a single job by identifier.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	var resp Job
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), "", nil, &resp); err != nil {
		return Job{}, err
	}
	return resp, nil
}

// Cancel requests cooperative cancellation of a job.
func (c *Client) Cancel(ctx context.Context, id string) (CancelResponse, error) {
	var resp CancelResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", "", nil, &resp); err != nil {
		return CancelResponse{}, err
	}
	return resp, nil
}

// Status fetches daemon health.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", "", nil, &resp); err != nil {
		return DaemonStatus{}, err
	}
	return resp, nil
}

// FetchResult downloads a completed job's video into destDir and returns the
// written path.
func (c *Client) FetchResult(ctx context.Context, id, destDir string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/result", "", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}
	destPath := filepath.Join(destDir, id+"_video.mp4")
	partial := destPath + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(partial)
		return "", fmt.Errorf("download result: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("flush output file: %w", err)
	}
	if err := os.Rename(partial, destPath); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("finalize output file: %w", err)
	}
	return destPath, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := c.newRequest(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// StatusError carries the HTTP status and server-provided message of a failed
// API call.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("daemon returned %d", e.StatusCode)
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
