package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/webhook"
)

const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
)

var ErrWebhookCallFailed = errors.New("webhook call failed")

type WebhookTestRequest struct {
	URL                 string
	Method              string
	Headers             map[string]string
	AuthenticationType  string
	AuthenticationValue string
	LeadEmail           string
}

// WebhookTestResult carries the upstream response. Data is the decoded JSON
// body, or the raw text when the body is not JSON.
type WebhookTestResult struct {
	StatusCode int `json:"status"`
	Data       any `json:"data"`
}

type WebhookDoer interface {
	Do(ctx context.Context, r webhook.Request) (*webhook.Response, error)
}

type WebhookService struct {
	LeadRepo repository.LeadRepositoryInterface
	Client   WebhookDoer
}

// TestWebhook calls url on behalf of the lead with the given email. Unlike
// pipeline calls, failures are returned to the caller.
func (s *WebhookService) TestWebhook(ctx context.Context, req WebhookTestRequest) (*WebhookTestResult, error) {
	lead, err := s.LeadRepo.GetByEmail(ctx, req.LeadEmail)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(req.Headers)+1)
	for k, v := range req.Headers {
		headers[k] = v
	}
	switch req.AuthenticationType {
	case AuthBearer:
		if req.AuthenticationValue != "" {
			headers["Authorization"] = "Bearer " + req.AuthenticationValue
		}
	case AuthAPIKey:
		if req.AuthenticationValue != "" {
			headers["X-API-Key"] = req.AuthenticationValue
		}
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodPost
	}
	call := webhook.Request{
		URL:     ExpandWebhookURL(req.URL, lead),
		Method:  method,
		Headers: headers,
	}
	if method == http.MethodPost {
		call.Body = lead
	}

	resp, err := s.Client.Do(ctx, call)
	if err != nil {
		return nil, errors.Join(ErrWebhookCallFailed, err)
	}

	result := &WebhookTestResult{StatusCode: resp.StatusCode}
	var data any
	if err := json.Unmarshal(resp.Body, &data); err == nil {
		result.Data = data
	} else {
		result.Data = string(resp.Body)
	}
	return result, nil
}

// ExpandWebhookURL substitutes lead placeholders with URL-escaped values.
func ExpandWebhookURL(raw string, lead *model.Lead) string {
	return strings.NewReplacer(
		"{{email}}", escapeComponent(lead.Email),
		"{{firstName}}", escapeComponent(model.Value(lead.FirstName)),
		"{{lastName}}", escapeComponent(model.Value(lead.LastName)),
		"{{company}}", escapeComponent(model.Value(lead.Company)),
	).Replace(raw)
}

func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var _ WebhookDoer = (*webhook.Client)(nil)
