// Package backend is the HTTP client for the interview service API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/transcript"
)

// DefaultTimeout bounds each backend request.
const DefaultTimeout = 15 * time.Second

const maxErrorBody = 2048

// Error describes a failed backend request.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Cause)
	case e.Body != "":
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Op, e.URL, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.URL, e.StatusCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Interview is the stored interview metadata.
type Interview struct {
	ID        json.RawMessage `json:"id"`
	JobTitle  string          `json:"job_title"`
	JobTitle2 string          `json:"jobTitle"`
	Duration  json.RawMessage `json:"duration"`
	Questions json.RawMessage `json:"questions"`
}

// Title returns the job title from whichever field the service populated.
func (i Interview) Title() string {
	if strings.TrimSpace(i.JobTitle) != "" {
		return strings.TrimSpace(i.JobTitle)
	}
	return strings.TrimSpace(i.JobTitle2)
}

// DurationText renders the duration whether it was stored as text or minutes.
func (i Interview) DurationText() string {
	raw := bytes.TrimSpace(i.Duration)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var minutes json.Number
	if err := json.Unmarshal(raw, &minutes); err == nil {
		return minutes.String() + " Min"
	}
	return ""
}

// FeedbackRequest is the body of a feedback submission.
type FeedbackRequest struct {
	InterviewID  InterviewID       `json:"interviewId"`
	UserName     string            `json:"userName"`
	Conversation []transcript.Turn `json:"conversation"`
	Duration     string            `json:"duration"`
}

// FeedbackResponse carries the generated feedback. Feedback is kept raw so
// both plain text and structured objects pass through untouched.
type FeedbackResponse struct {
	Feedback json.RawMessage `json:"feedback"`
	Score    *int            `json:"score,omitempty"`
}

// InterviewID marshals as a JSON number when the id is numeric.
type InterviewID string

func (id InterviewID) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(id))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(s)
}

// Client talks to the interview service.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// Options configures a Client.
type Options struct {
	Timeout    time.Duration
	AuthToken  string
	HTTPClient *http.Client
}

// New builds a client for baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: parsed, token: strings.TrimSpace(opts.AuthToken), http: httpClient}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Interview fetches GET /api/interviews/{id}.
func (c *Client) Interview(ctx context.Context, id string) (Interview, error) {
	var out Interview
	err := c.do(ctx, "fetch interview", http.MethodGet, c.endpoint("api", "interviews", id), nil, &out)
	return out, err
}

// SubmitFeedback posts the conversation to /api/interviews/{id}/feedback.
func (c *Client) SubmitFeedback(ctx context.Context, id string, req FeedbackRequest) (FeedbackResponse, error) {
	var out FeedbackResponse
	err := c.do(ctx, "submit feedback", http.MethodPost, c.endpoint("api", "interviews", id, "feedback"), req, &out)
	return out, err
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health check", http.MethodGet, c.endpoint("health"), nil, nil)
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	u := *c.baseURL
	base := strings.TrimRight(u.Path, "/")
	u.Path = base + "/" + strings.Join(parts, "/")
	u.RawPath = base + "/" + strings.Join(escaped, "/")
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, URL: target, Cause: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Op: op, URL: target, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, URL: target, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Op: op, URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, URL: target, StatusCode: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
