package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a Pipedrive-compatible CRM REST API. The API key travels
// as an api_token query parameter on every request.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a CRM client with a bounded request timeout.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AddNote attaches a free-text note to the given deal.
func (c *Client) AddNote(ctx context.Context, dealID, content string) error {
	payload, err := json.Marshal(map[string]string{
		"content": content,
		"deal_id": dealID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode note payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/notes"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build note request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "note creation")
}

// UploadFile submits file bytes as a multipart upload associated with the
// given deal.
func (c *Client) UploadFile(ctx context.Context, dealID, filename string, file io.Reader) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("deal_id", dealID); err != nil {
		return fmt.Errorf("failed to write deal_id field: %w", err)
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create multipart file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/files"), &body)
	if err != nil {
		return fmt.Errorf("failed to build file upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, "file upload")
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path + "?api_token=" + url.QueryEscape(c.apiToken)
}

func (c *Client) do(req *http.Request, operation string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("CRM %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	// CRM error bodies are short; cap the read anyway.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read CRM %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("CRM %s returned status %d: %s", operation, resp.StatusCode, Truncate(string(raw), 300))
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to parse CRM %s response: %w", operation, err)
	}

	if !parsed.Success {
		slog.Warn("CRM reported failure", "operation", operation, "error", parsed.Error)
		return fmt.Errorf("CRM %s reported failure: %s", operation, Truncate(string(raw), 300))
	}

	return nil
}

// Truncate shortens diagnostic payloads for in-thread error replies.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
