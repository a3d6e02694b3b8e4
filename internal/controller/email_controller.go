// internal/controller/email_controller.go
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/mailer"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/service"
)

// BatchTrigger runs one guarded batch. Implemented by service.Worker.
type BatchTrigger interface {
	RunOnce(ctx context.Context, limit int) (service.BatchResult, bool, error)
}

type TestSender interface {
	SendTestEmail(ctx context.Context, req service.TestEmailRequest) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

type EmailController struct {
	Runner BatchTrigger
	Emails TestSender
	Queue  Publisher
	Topic  string
	Log    *slog.Logger
}

type processResponse struct {
	Message string `json:"message"`
	service.BatchResult
}

type testEmailBody struct {
	To         string            `json:"to" validate:"required,email"`
	Subject    string            `json:"subject" validate:"required"`
	Body       string            `json:"body"`
	FromName   string            `json:"from_name"`
	FromEmail  string            `json:"from_email" validate:"required,email"`
	SMTPConfig mailer.SMTPConfig `json:"smtp_config"`
}

func (c *EmailController) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logger.NewNope()
}

// ProcessDue handles POST /emails/process[?limit=N][&async=true].
func (c *EmailController) ProcessDue(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		c.enqueue(w, r, limit)
		return
	}

	result, ran, err := c.Runner.RunOnce(r.Context(), limit)
	if err != nil {
		c.log().ErrorContext(r.Context(), "batch run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "database query failed")
		return
	}
	if !ran {
		writeError(w, http.StatusConflict, "a batch run is already in progress")
		return
	}

	msg := "Emails processed"
	if len(result.Results) == 0 && result.Completed == 0 && result.Skipped == 0 {
		msg = "No emails to send"
	}
	writeJSON(w, http.StatusOK, processResponse{Message: msg, BatchResult: result})
}

func (c *EmailController) enqueue(w http.ResponseWriter, r *http.Request, limit int) {
	if c.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "run queue is not configured")
		return
	}

	body, err := queue.EncodeRunRequest(queue.RunRequest{Limit: limit, RequestedAt: time.Now().UTC()})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	topic := c.Topic
	if topic == "" {
		topic = queue.DefaultTopic
	}
	if err := c.Queue.Publish(r.Context(), topic, body); err != nil {
		c.log().ErrorContext(r.Context(), "failed to publish run request", "topic", topic, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue batch run")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"message": "Batch run queued", "limit": limit})
}

// SendTest handles POST /emails/test.
func (c *EmailController) SendTest(w http.ResponseWriter, r *http.Request) {
	var body testEmailBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := c.Emails.SendTestEmail(r.Context(), service.TestEmailRequest{
		To:        body.To,
		Subject:   body.Subject,
		Body:      body.Body,
		FromName:  body.FromName,
		FromEmail: body.FromEmail,
		SMTP:      body.SMTPConfig,
	})
	if err != nil {
		c.log().WarnContext(r.Context(), "test email failed", "to", body.To, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Test email sent successfully",
		"to":      body.To,
	})
}
