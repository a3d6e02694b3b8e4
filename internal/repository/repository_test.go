package repository_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

type repos struct {
	leads       *repository.LeadRepository
	accounts    *repository.EmailAccountRepository
	campaigns   *repository.CampaignRepository
	sequences   *repository.SequenceRepository
	enrollments *repository.EnrollmentRepository
	logs        *repository.EmailLogRepository
}

func openRepos(t *testing.T, databaseURL string) (*repos, context.Context) {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, db.Migrate(ctx, conn, "", logger))

	return &repos{
		leads:       &repository.LeadRepository{DB: conn},
		accounts:    &repository.EmailAccountRepository{DB: conn},
		campaigns:   &repository.CampaignRepository{DB: conn},
		sequences:   &repository.SequenceRepository{DB: conn},
		enrollments: &repository.EnrollmentRepository{DB: conn},
		logs:        &repository.EmailLogRepository{DB: conn},
	}, ctx
}

func strPtr(s string) *string { return &s }

// seed creates a campaign with one account, one lead and a two-step sequence.
func seed(t *testing.T, ctx context.Context, r *repos) (*model.Campaign, *model.EmailAccount, *model.Lead) {
	t.Helper()

	account := &model.EmailAccount{Name: "Sales", Email: "sales@acme.test", SMTPHost: "smtp.acme.test", SMTPPort: 587, SMTPUsername: "sales", SMTPPassword: "secret", DailyLimit: 50}
	require.NoError(t, r.accounts.Create(ctx, account))

	campaign := &model.Campaign{Name: "Q4 outreach", Status: model.CampaignStatusActive, EmailAccountIDs: []string{account.ID}}
	require.NoError(t, r.campaigns.Create(ctx, campaign))

	lead := &model.Lead{Email: "jane@example.com", FirstName: strPtr("Jane"), Company: strPtr("Initech"), CustomFields: map[string]any{"plan": "pro"}}
	require.NoError(t, r.leads.Create(ctx, lead))

	require.NoError(t, r.sequences.Create(ctx, &model.SequenceStep{
		CampaignID:      campaign.ID,
		Name:            "intro",
		StepNumber:      1,
		DelayDays:       2,
		SubjectVariants: []string{"Hi {{firstName}}", "Hello {{firstName}}"},
		BodyVariants:    []string{"Body A", "Body B"},
		ContentWebhook: model.WebhookConfig{
			Enabled: true,
			URL:     "https://content.test/hook",
			Headers: map[string]string{"X-Token": "t"},
		},
	}))
	require.NoError(t, r.sequences.Create(ctx, &model.SequenceStep{
		CampaignID:      campaign.ID,
		StepNumber:      2,
		SubjectVariants: []string{"Following up"},
		BodyVariants:    []string{"Any thoughts?"},
	}))

	return campaign, account, lead
}

func runRepositorySuite(t *testing.T, open func(t *testing.T) (*repos, context.Context)) {
	t.Run("lead lookups", func(t *testing.T) {
		r, ctx := open(t)
		_, _, lead := seed(t, ctx, r)

		got, err := r.leads.GetByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, lead.ID, got.ID)
		assert.Equal(t, "Jane", model.Value(got.FirstName))
		assert.Nil(t, got.LastName)
		assert.Equal(t, "pro", got.CustomFields["plan"])

		_, err = r.leads.GetByEmail(ctx, "nobody@example.com")
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("campaign and steps", func(t *testing.T) {
		r, ctx := open(t)
		campaign, account, _ := seed(t, ctx, r)

		got, err := r.campaigns.GetByID(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{account.ID}, got.EmailAccountIDs)

		_, err = r.campaigns.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		var notFound *appErrors.ErrCampaignNotFound
		assert.ErrorAs(t, err, &notFound)

		step, err := r.sequences.GetStep(ctx, campaign.ID, 1)
		require.NoError(t, err)
		require.NotNil(t, step)
		assert.Equal(t, 48*time.Hour, step.TotalDelay())
		assert.Len(t, step.SubjectVariants, 2)
		assert.True(t, step.ContentWebhook.Active())
		assert.Equal(t, "POST", step.ContentWebhook.Method)
		assert.Equal(t, "subject", step.ContentWebhook.SubjectField)
		assert.Equal(t, "t", step.ContentWebhook.Headers["X-Token"])
		assert.False(t, step.PresendWebhook.Active())

		missing, err := r.sequences.GetStep(ctx, campaign.ID, 3)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("due enrollments and transitions", func(t *testing.T) {
		r, ctx := open(t)
		campaign, account, lead := seed(t, ctx, r)
		now := time.Now().UTC().Truncate(time.Second)
		past := now.Add(-time.Minute)
		future := now.Add(time.Hour)

		other := &model.Lead{Email: "bob@example.com"}
		require.NoError(t, r.leads.Create(ctx, other))
		third := &model.Lead{Email: "ann@example.com"}
		require.NoError(t, r.leads.Create(ctx, third))

		enrollments := []*model.Enrollment{
			{CampaignID: campaign.ID, LeadID: lead.ID, EmailAccountID: account.ID, NextFollowupAt: &past},
			{CampaignID: campaign.ID, LeadID: other.ID, EmailAccountID: account.ID, NextFollowupAt: &future},
			{CampaignID: campaign.ID, LeadID: third.ID},
		}
		n, err := r.enrollments.CreateMany(ctx, enrollments)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = r.enrollments.CreateMany(ctx, []*model.Enrollment{{CampaignID: campaign.ID, LeadID: lead.ID, NextFollowupAt: &past}})
		require.NoError(t, err)
		assert.Equal(t, 0, n, "duplicate enrollment is skipped")

		due, err := r.enrollments.ListDue(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, enrollments[0].ID, due[0].ID)
		require.NotNil(t, due[0].Lead)
		assert.Equal(t, "jane@example.com", due[0].Lead.Email)
		require.NotNil(t, due[0].EmailAccount)
		assert.Equal(t, "smtp.acme.test", due[0].EmailAccount.SMTPHost)
		assert.Equal(t, "secret", due[0].EmailAccount.SMTPPassword)

		next := now.Add(48 * time.Hour)
		require.NoError(t, r.enrollments.RecordSent(ctx, due[0].ID, 1, model.EnrollmentStatusQueued, now, &next))

		got, err := r.enrollments.GetByID(ctx, due[0].ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CurrentSequenceStep)
		assert.Equal(t, model.EnrollmentStatusQueued, got.Status)
		require.NotNil(t, got.NextFollowupAt)
		assert.True(t, got.NextFollowupAt.Equal(next))

		due, err = r.enrollments.ListDue(ctx, now, 10)
		require.NoError(t, err)
		assert.Empty(t, due)

		require.NoError(t, r.enrollments.MarkCompleted(ctx, enrollments[0].ID))
		require.NoError(t, r.enrollments.MarkFailed(ctx, enrollments[1].ID))

		stats, err := r.campaigns.GetStats(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, repository.CampaignStats{Total: 3, Queued: 1, Failed: 1, Completed: 1}, stats)
	})

	t.Run("due limit", func(t *testing.T) {
		r, ctx := open(t)
		campaign, account, _ := seed(t, ctx, r)
		now := time.Now().UTC()
		past := now.Add(-time.Hour)

		var batch []*model.Enrollment
		for _, email := range []string{"a@x.test", "b@x.test", "c@x.test"} {
			l := &model.Lead{Email: email}
			require.NoError(t, r.leads.Create(ctx, l))
			batch = append(batch, &model.Enrollment{CampaignID: campaign.ID, LeadID: l.ID, EmailAccountID: account.ID, NextFollowupAt: &past})
		}
		_, err := r.enrollments.CreateMany(ctx, batch)
		require.NoError(t, err)

		due, err := r.enrollments.ListDue(ctx, now, 2)
		require.NoError(t, err)
		assert.Len(t, due, 2)
	})

	t.Run("email logs", func(t *testing.T) {
		r, ctx := open(t)
		campaign, account, lead := seed(t, ctx, r)
		now := time.Now().UTC()

		e := &model.Enrollment{CampaignID: campaign.ID, LeadID: lead.ID, EmailAccountID: account.ID, NextFollowupAt: &now}
		_, err := r.enrollments.CreateMany(ctx, []*model.Enrollment{e})
		require.NoError(t, err)
		step, err := r.sequences.GetStep(ctx, campaign.ID, 1)
		require.NoError(t, err)

		require.NoError(t, r.logs.Insert(ctx, &model.EmailLog{
			CampaignLeadID: e.ID,
			SequenceID:     step.ID,
			EmailAccountID: account.ID,
			Subject:        "Hi Jane",
			Body:           "Body A",
			VariantUsed:    0,
			WebhookData:    json.RawMessage(`{"subject":"Hi Jane"}`),
			Status:         model.EmailLogStatusSent,
			SentAt:         &now,
		}))
		require.NoError(t, r.logs.Insert(ctx, &model.EmailLog{
			CampaignLeadID: e.ID,
			SequenceID:     step.ID,
			EmailAccountID: account.ID,
			Subject:        "Hi Jane",
			Body:           "Body A",
			Status:         model.EmailLogStatusFailed,
			ErrorMessage:   "dial tcp: connection refused",
		}))

		logs, err := r.logs.ListByEnrollment(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, logs, 2)

		byStatus := map[string]*model.EmailLog{}
		for _, l := range logs {
			byStatus[l.Status] = l
		}
		sent := byStatus[model.EmailLogStatusSent]
		require.NotNil(t, sent)
		assert.JSONEq(t, `{"subject":"Hi Jane"}`, string(sent.WebhookData))
		assert.Nil(t, sent.PresendWebhookResponse)
		assert.NotNil(t, sent.SentAt)

		failed := byStatus[model.EmailLogStatusFailed]
		require.NotNil(t, failed)
		assert.Nil(t, failed.SentAt)
		assert.Equal(t, "dial tcp: connection refused", failed.ErrorMessage)
	})
}

func TestRepositories_SQLite(t *testing.T) {
	runRepositorySuite(t, func(t *testing.T) (*repos, context.Context) {
		return openRepos(t, ":memory:")
	})
}

func TestRepositories_Postgres(t *testing.T) {
	if os.Getenv("RUN_POSTGRES_INTEGRATION") != "1" {
		t.Skip("set RUN_POSTGRES_INTEGRATION=1 to run against a postgres container")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("outreach_test"),
		postgres.WithUsername("outreach"),
		postgres.WithPassword("outreach"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	runRepositorySuite(t, func(t *testing.T) (*repos, context.Context) {
		conn, err := db.Open(ctx, databaseURL)
		require.NoError(t, err)
		_, err = conn.ExecContext(ctx, "DROP SCHEMA public CASCADE; CREATE SCHEMA public")
		require.NoError(t, err)
		require.NoError(t, conn.Close())

		return openRepos(t, databaseURL)
	})
}
