package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// extractionSchema is the fixed, versioned output schema submitted with
// every extraction request.
var extractionSchema = map[string]any{
	"version": "2024-06",
	"fields": []string{
		"title", "summary", "content", "author", "publishDate",
		"mainImage", "images", "keywords", "sentiment",
	},
}

type serviceResponse struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Content     string   `json:"content"`
	Author      string   `json:"author"`
	PublishDate string   `json:"publishDate"`
	MainImage   string   `json:"mainImage"`
	Images      []string `json:"images"`
	Keywords    []string `json:"keywords"`
	Markdown    bool     `json:"markdown"`
}

// ServiceClient calls the primary structured content-extraction service. It
// supports a synchronous call and an asynchronous job-submit + bounded-poll
// variant, selected by mode.
type ServiceClient struct {
	baseURL         string
	apiKey          string
	mode            string // "sync" or "async"
	httpClient      *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
}

var _ Service = (*ServiceClient)(nil)

func NewServiceClient(baseURL, apiKey, mode string, timeout time.Duration) *ServiceClient {
	return &ServiceClient{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		apiKey:          apiKey,
		mode:            mode,
		httpClient:      &http.Client{Timeout: timeout},
		pollInterval:    2 * time.Second,
		maxPollAttempts: 15,
	}
}

// Extract submits the URL plus the fixed output schema and maps the response
// onto Content. A response without a title is a failure, not a success with
// nulls.
func (c *ServiceClient) Extract(ctx context.Context, url string) (*Content, error) {
	if c.baseURL == "" {
		return nil, &ServiceError{URL: url, Reason: "service not configured"}
	}

	var resp serviceResponse
	var err error
	if c.mode == "async" {
		resp, err = c.extractAsync(ctx, url)
	} else {
		resp, err = c.extractSync(ctx, url)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(resp.Title) == "" {
		return nil, &ServiceError{URL: url, Reason: "response missing title"}
	}

	content := &Content{
		URL:       url,
		Title:     resp.Title,
		Summary:   resp.Summary,
		Content:   resp.Content,
		Author:    resp.Author,
		MainImage: resp.MainImage,
		Images:    resp.Images,
		Keywords:  resp.Keywords,
		Markdown:  resp.Markdown,
		Tier:      1,
		RawBody:   resp.Content,
	}
	if ts, err := time.Parse(time.RFC3339, resp.PublishDate); err == nil {
		content.PublishedAt = &ts
	}

	return content, nil
}

func (c *ServiceClient) extractSync(ctx context.Context, url string) (serviceResponse, error) {
	var resp serviceResponse
	err := c.post(ctx, "/v1/extract", map[string]any{
		"url":    url,
		"schema": extractionSchema,
	}, &resp)
	if err != nil {
		return resp, &ServiceError{URL: url, Reason: "extract call failed", Err: err}
	}
	return resp, nil
}

// extractAsync submits a job and polls it with a bounded attempt count; the
// context deadline caps total wait regardless of attempts left.
func (c *ServiceClient) extractAsync(ctx context.Context, url string) (serviceResponse, error) {
	var submitted struct {
		JobID string `json:"jobId"`
	}
	err := c.post(ctx, "/v1/extract/jobs", map[string]any{
		"url":    url,
		"schema": extractionSchema,
	}, &submitted)
	if err != nil {
		return serviceResponse{}, &ServiceError{URL: url, Reason: "job submit failed", Err: err}
	}
	if submitted.JobID == "" {
		return serviceResponse{}, &ServiceError{URL: url, Reason: "job submit returned no id"}
	}

	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return serviceResponse{}, &ServiceError{URL: url, Reason: "job poll cancelled", Err: ctx.Err()}
		case <-time.After(c.pollInterval):
		}

		var job struct {
			Status string          `json:"status"`
			Error  string          `json:"error"`
			Result serviceResponse `json:"result"`
		}
		if err := c.get(ctx, "/v1/extract/jobs/"+submitted.JobID, &job); err != nil {
			return serviceResponse{}, &ServiceError{URL: url, Reason: "job poll failed", Err: err}
		}

		switch job.Status {
		case "completed":
			return job.Result, nil
		case "failed":
			return serviceResponse{}, &ServiceError{URL: url, Reason: "job failed: " + job.Error}
		}
	}

	return serviceResponse{}, &ServiceError{URL: url,
		Reason: fmt.Sprintf("job not done after %d poll attempts", c.maxPollAttempts)}
}

func (c *ServiceClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	c.setHeaders(req)

	return c.send(req, out)
}

func (c *ServiceClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	c.setHeaders(req)

	return c.send(req, out)
}

func (c *ServiceClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (c *ServiceClient) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("service error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
