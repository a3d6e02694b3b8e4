// internal/service/pipeline.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/mailer"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/webhook"
)

const DefaultBatchSize = 10

// Store is the persistence the pipeline reads from and writes to.
type Store interface {
	StepSource
	ListDueEnrollments(ctx context.Context, now time.Time, limit int) ([]*model.Enrollment, error)
	InsertEmailLog(ctx context.Context, l *model.EmailLog) error
	MarkCompleted(ctx context.Context, enrollmentID string) error
	MarkFailed(ctx context.Context, enrollmentID string) error
	RecordSent(ctx context.Context, enrollmentID string, step int, status string, lastContacted time.Time, nextFollowup *time.Time) error
}

// LeadResult is the outcome of one dispatched enrollment.
type LeadResult struct {
	Lead    string `json:"lead"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// BatchResult summarizes one ProcessDue run. Completed and Skipped
// enrollments are counted but not listed in Results.
type BatchResult struct {
	Processed int          `json:"processed"`
	Sent      int          `json:"sent"`
	Failed    int          `json:"failed"`
	Completed int          `json:"completed"`
	Skipped   int          `json:"skipped"`
	Results   []LeadResult `json:"results"`
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCompleted
	outcomeSent
	outcomeFailed
)

// Pipeline sends the next sequence step to every due enrollment.
type Pipeline struct {
	Store     Store
	Webhooks  webhook.Invoker
	Transport mailer.Transport
	Random    RandomSource
	Now       func() time.Time
	Log       *slog.Logger
	BatchSize int
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *Pipeline) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return logger.NewNope()
}

// ProcessDue handles up to limit due enrollments one after another. Only a
// failure to fetch the batch is returned as an error; everything that goes
// wrong for a single enrollment is reported in its result.
func (p *Pipeline) ProcessDue(ctx context.Context, limit int) (BatchResult, error) {
	if limit <= 0 {
		limit = p.BatchSize
	}
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	log := p.log()

	due, err := p.Store.ListDueEnrollments(ctx, p.now(), limit)
	if err != nil {
		log.ErrorContext(ctx, "failed to fetch due enrollments", "error", err)
		return BatchResult{}, fmt.Errorf("fetch due enrollments: %w", err)
	}

	log.InfoContext(ctx, "batch started", "due", len(due), "limit", limit)

	result := BatchResult{Results: []LeadResult{}}
	for _, e := range due {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "batch interrupted", "remaining", len(due)-result.Processed-result.Completed-result.Skipped, "error", err)
			break
		}

		kind, lr := p.processSafely(ctx, e)
		switch kind {
		case outcomeCompleted:
			result.Completed++
		case outcomeSkipped:
			result.Skipped++
		case outcomeSent:
			result.Processed++
			result.Sent++
			result.Results = append(result.Results, lr)
		case outcomeFailed:
			result.Processed++
			result.Failed++
			result.Results = append(result.Results, lr)
		}
	}

	log.InfoContext(ctx, "batch finished",
		"processed", result.Processed,
		"sent", result.Sent,
		"failed", result.Failed,
		"completed", result.Completed,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (p *Pipeline) processSafely(ctx context.Context, e *model.Enrollment) (kind outcome, lr LeadResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing enrollment: %v", r)
			p.log().ErrorContext(ctx, "enrollment processing panicked", "enrollment_id", e.ID, "error", err)
			if markErr := p.Store.MarkFailed(ctx, e.ID); markErr != nil {
				p.log().ErrorContext(ctx, "failed to mark enrollment failed", "enrollment_id", e.ID, "error", markErr)
			}
			kind = outcomeFailed
			lr = LeadResult{Lead: leadEmail(e), Subject: lr.Subject, Status: model.EmailLogStatusFailed, Error: err.Error()}
		}
	}()
	return p.process(ctx, e)
}

func (p *Pipeline) process(ctx context.Context, e *model.Enrollment) (outcome, LeadResult) {
	log := p.log().With("enrollment_id", e.ID, "campaign_id", e.CampaignID)

	step, err := ResolveNextStep(ctx, p.Store, e.CampaignID, e.CurrentSequenceStep)
	if errors.Is(err, appErrors.ErrSequenceComplete) {
		if err := p.Store.MarkCompleted(ctx, e.ID); err != nil {
			log.ErrorContext(ctx, "failed to mark enrollment completed", "error", err)
			return outcomeSkipped, LeadResult{}
		}
		log.InfoContext(ctx, "sequence completed", "last_step", e.CurrentSequenceStep)
		return outcomeCompleted, LeadResult{}
	}
	if err != nil {
		log.WarnContext(ctx, "skipping enrollment, step lookup failed", "error", err)
		return outcomeSkipped, LeadResult{}
	}

	attempt := &model.EmailLog{
		CampaignLeadID: e.ID,
		SequenceID:     step.ID,
		EmailAccountID: e.EmailAccountID,
	}

	if e.Lead == nil {
		return p.fail(ctx, log, e, attempt, appErrors.ErrNoLead)
	}
	lead := e.Lead
	payload := webhook.NewPayload(lead, e.CampaignID, step.StepNumber)

	if step.PresendWebhook.Active() {
		res, err := p.Webhooks.Invoke(ctx, step.PresendWebhook, payload)
		if err != nil {
			log.WarnContext(ctx, "webhook degraded", "kind", "presend", "url", step.PresendWebhook.URL, "error", err)
		} else {
			attempt.PresendWebhookResponse = res.Body
		}
	}

	variant, err := SelectVariant(step, p.Random)
	if err != nil {
		return p.fail(ctx, log, e, attempt, err)
	}
	attempt.VariantUsed = variant.Index
	subject, body := variant.Subject, variant.Body

	if step.ContentWebhook.Active() {
		res, err := p.Webhooks.Invoke(ctx, step.ContentWebhook, payload)
		if err != nil {
			log.WarnContext(ctx, "webhook degraded", "kind", "content", "url", step.ContentWebhook.URL, "error", err)
		} else {
			subject, body = applyContentOverride(step.ContentWebhook, res, subject, body)
			attempt.WebhookData = contentAudit(res)
		}
	}

	attempt.Subject = RenderTemplate(subject, lead)
	attempt.Body = RenderTemplate(body, lead)

	if e.EmailAccount == nil {
		return p.fail(ctx, log, e, attempt, appErrors.ErrNoSendingAccount)
	}

	msg := &mailer.Message{
		FromName:    e.EmailAccount.Name,
		FromEmail:   e.EmailAccount.Email,
		To:          lead.Email,
		Subject:     attempt.Subject,
		Text:        attempt.Body,
		Attachments: step.Attachments,
	}
	if err := p.Transport.Send(ctx, mailer.ConfigFromAccount(e.EmailAccount), msg); err != nil {
		return p.fail(ctx, log, e, attempt, err)
	}

	now := p.now()
	attempt.Status = model.EmailLogStatusSent
	attempt.SentAt = &now
	if err := p.Store.InsertEmailLog(ctx, attempt); err != nil {
		log.ErrorContext(ctx, "failed to write email log after send", "error", err)
	}

	status := model.EnrollmentStatusSent
	var next *time.Time
	if delay := step.TotalDelay(); delay > 0 {
		status = model.EnrollmentStatusQueued
		t := now.Add(delay)
		next = &t
	}
	if err := p.Store.RecordSent(ctx, e.ID, step.StepNumber, status, now, next); err != nil {
		log.ErrorContext(ctx, "failed to update enrollment after send", "error", err)
	}

	log.InfoContext(ctx, "email sent", "lead", lead.Email, "step", step.StepNumber, "variant", variant.Index)
	return outcomeSent, LeadResult{Lead: lead.Email, Subject: attempt.Subject, Status: model.EmailLogStatusSent}
}

// fail records a failed attempt and moves the enrollment to failed.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, e *model.Enrollment, attempt *model.EmailLog, cause error) (outcome, LeadResult) {
	log.ErrorContext(ctx, "dispatch failed", "lead", leadEmail(e), "error", cause)

	attempt.Status = model.EmailLogStatusFailed
	attempt.ErrorMessage = cause.Error()
	if err := p.Store.InsertEmailLog(ctx, attempt); err != nil {
		log.ErrorContext(ctx, "failed to write email log", "error", err)
	}
	if err := p.Store.MarkFailed(ctx, e.ID); err != nil {
		log.ErrorContext(ctx, "failed to mark enrollment failed", "error", err)
	}

	return outcomeFailed, LeadResult{
		Lead:    leadEmail(e),
		Subject: attempt.Subject,
		Status:  model.EmailLogStatusFailed,
		Error:   cause.Error(),
	}
}

// applyContentOverride replaces subject and body independently with non-empty
// string values found under the configured field names.
func applyContentOverride(cfg model.WebhookConfig, res webhook.Result, subject, body string) (string, string) {
	subjectField, bodyField := cfg.SubjectField, cfg.BodyField
	if subjectField == "" {
		subjectField = "subject"
	}
	if bodyField == "" {
		bodyField = "body"
	}
	if v, ok := res.String(subjectField); ok {
		subject = v
	}
	if v, ok := res.String(bodyField); ok {
		body = v
	}
	return subject, body
}

func contentAudit(res webhook.Result) json.RawMessage {
	if fields := res.FieldsJSON(); fields != nil {
		return fields
	}
	return res.Body
}

func leadEmail(e *model.Enrollment) string {
	if e.Lead == nil {
		return e.LeadID
	}
	return e.Lead.Email
}
