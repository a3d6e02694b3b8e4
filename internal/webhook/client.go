// Package webhook performs the outbound HTTP calls attached to sequence steps.
package webhook

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

	"github.com/unclebandit/outreach-backend/internal/model"
)

const (
	DefaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

var (
	ErrInvalidURL       = errors.New("invalid webhook url")
	ErrUnexpectedStatus = errors.New("unexpected webhook status")
	ErrMalformedBody    = errors.New("malformed webhook response")
)

// CallError describes a webhook call that produced no usable response.
type CallError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("webhook %s: %v", e.URL, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Request is one outbound call. Query is merged into the URL; Body, when set,
// is sent as JSON.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Query   url.Values
	Body    any
}

// Response is a completed call with a 2xx status.
type Response struct {
	StatusCode int
	Body       []byte
}

// Invoker is the surface the pipeline depends on.
type Invoker interface {
	Invoke(ctx context.Context, cfg model.WebhookConfig, payload Payload) (Result, error)
}

type Client struct {
	HTTP    *http.Client
	Timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		Timeout: timeout,
	}
}

// Invoke calls a step webhook with the lead payload and normalizes the response.
// GET sends the payload as a query string, any other method as a JSON body.
func (c *Client) Invoke(ctx context.Context, cfg model.WebhookConfig, payload Payload) (Result, error) {
	req := Request{
		URL:     cfg.URL,
		Method:  cfg.Method,
		Headers: cfg.Headers,
	}
	if strings.EqualFold(cfg.Method, http.MethodGet) {
		req.Query = payload.Query()
	} else {
		req.Body = payload
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return NoResult, err
	}

	res, err := Normalize(resp.Body)
	if err != nil {
		return NoResult, &CallError{URL: cfg.URL, StatusCode: resp.StatusCode, Err: errors.Join(ErrMalformedBody, err)}
	}
	return res, nil
}

// Do performs the request within the client timeout. Non-2xx statuses are
// returned as *CallError.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodPost
	}

	target, err := url.Parse(r.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, &CallError{URL: r.URL, Err: ErrInvalidURL}
	}
	if len(r.Query) > 0 {
		q := target.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if r.Body != nil && method != http.MethodGet {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, &CallError{URL: r.URL, Err: fmt.Errorf("failed to encode payload: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, &CallError{URL: r.URL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &CallError{URL: r.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &CallError{URL: r.URL, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CallError{URL: r.URL, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

var _ Invoker = (*Client)(nil)
