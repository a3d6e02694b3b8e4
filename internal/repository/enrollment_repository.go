// internal/repository/enrollment_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type EnrollmentRepositoryInterface interface {
	CreateMany(ctx context.Context, enrollments []*model.Enrollment) (int, error)
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Enrollment, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
	RecordSent(ctx context.Context, id string, step int, status string, lastContacted time.Time, nextFollowup *time.Time) error
}

type EnrollmentRepository struct {
	DB *db.DB
}

const enrollmentColumns = `cl.id, cl.campaign_id, cl.lead_id, cl.email_account_id, cl.status,
    cl.current_sequence_step, cl.last_contacted_at, cl.next_followup_at, cl.added_at`

// CreateMany inserts the enrollments in one transaction. Leads already enrolled
// in the campaign are skipped; the number of new rows is returned.
func (r *EnrollmentRepository) CreateMany(ctx context.Context, enrollments []*model.Enrollment) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin enrollment tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.DB.Rebind(`
        INSERT INTO campaign_leads (id, campaign_id, lead_id, email_account_id, status,
            current_sequence_step, last_contacted_at, next_followup_at, added_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (campaign_id, lead_id) DO NOTHING
    `))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare enrollment insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range enrollments {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Status == "" {
			e.Status = model.EnrollmentStatusQueued
		}
		if e.AddedAt.IsZero() {
			e.AddedAt = time.Now().UTC()
		}
		res, err := stmt.ExecContext(ctx,
			e.ID, e.CampaignID, e.LeadID, nullableID(e.EmailAccountID), e.Status,
			e.CurrentSequenceStep, nullableTime(e.LastContactedAt), nullableTime(e.NextFollowupAt), e.AddedAt.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert enrollment for lead %s: %w", e.LeadID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit enrollments: %w", err)
	}
	return inserted, nil
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	query := r.DB.Rebind(`SELECT ` + enrollmentColumns + ` FROM campaign_leads cl WHERE cl.id=$1`)
	e, err := scanEnrollment(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("enrollment %s: %w", id, appErrors.ErrNotFound)
		}
		return nil, err
	}
	return e, nil
}

// ListDue returns up to limit queued enrollments whose next_followup_at is set
// and not after now, joined with their lead and sending account.
func (r *EnrollmentRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Enrollment, error) {
	query := r.DB.Rebind(`
        SELECT ` + enrollmentColumns + `,
            l.id, l.email, l.first_name, l.last_name, l.company, l.title, l.phone,
            l.website, l.linkedin_url, l.custom_fields, l.status, l.created_at,
            ea.id, ea.name, ea.email, ea.smtp_host, ea.smtp_port, ea.smtp_username, ea.smtp_password
        FROM campaign_leads cl
        JOIN leads l ON l.id = cl.lead_id
        LEFT JOIN email_accounts ea ON ea.id = cl.email_account_id
        WHERE cl.status = $1
          AND cl.next_followup_at IS NOT NULL
          AND cl.next_followup_at <= $2
        ORDER BY cl.next_followup_at ASC
        LIMIT $3
    `)

	rows, err := r.DB.QueryContext(ctx, query, model.EnrollmentStatusQueued, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due enrollments: %w", err)
	}
	defer rows.Close()

	var out []*model.Enrollment
	for rows.Next() {
		e, err := scanDueEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.EnrollmentStatusCompleted)
}

func (r *EnrollmentRepository) MarkFailed(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.EnrollmentStatusFailed)
}

// RecordSent advances the enrollment after a successful send.
func (r *EnrollmentRepository) RecordSent(ctx context.Context, id string, step int, status string, lastContacted time.Time, nextFollowup *time.Time) error {
	query := r.DB.Rebind(`
        UPDATE campaign_leads
        SET status=$1, current_sequence_step=$2, last_contacted_at=$3, next_followup_at=$4
        WHERE id=$5
    `)
	_, err := r.DB.ExecContext(ctx, query, status, step, lastContacted.UTC(), nullableTime(nextFollowup), id)
	if err != nil {
		return fmt.Errorf("failed to record send for enrollment %s: %w", id, err)
	}
	return nil
}

func (r *EnrollmentRepository) setStatus(ctx context.Context, id, status string) error {
	query := r.DB.Rebind(`UPDATE campaign_leads SET status=$1 WHERE id=$2`)
	if _, err := r.DB.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to mark enrollment %s %s: %w", id, status, err)
	}
	return nil
}

func scanEnrollment(row scanner) (*model.Enrollment, error) {
	var (
		e                   model.Enrollment
		accountID           sql.NullString
		lastContacted, next sql.NullTime
	)
	err := row.Scan(&e.ID, &e.CampaignID, &e.LeadID, &accountID, &e.Status,
		&e.CurrentSequenceStep, &lastContacted, &next, &e.AddedAt)
	if err != nil {
		return nil, err
	}
	e.EmailAccountID = accountID.String
	e.LastContactedAt = timePtr(lastContacted)
	e.NextFollowupAt = timePtr(next)
	return &e, nil
}

func scanDueEnrollment(row scanner) (*model.Enrollment, error) {
	var (
		e                                  model.Enrollment
		l                                  model.Lead
		accountID                          sql.NullString
		lastContacted, next                sql.NullTime
		first, last, company, title, phone sql.NullString
		website, linkedin                  sql.NullString
		custom                             []byte
		eaID, eaName, eaEmail, eaHost      sql.NullString
		eaUser, eaPass                     sql.NullString
		eaPort                             sql.NullInt64
	)
	err := row.Scan(
		&e.ID, &e.CampaignID, &e.LeadID, &accountID, &e.Status,
		&e.CurrentSequenceStep, &lastContacted, &next, &e.AddedAt,
		&l.ID, &l.Email, &first, &last, &company, &title, &phone,
		&website, &linkedin, &custom, &l.Status, &l.CreatedAt,
		&eaID, &eaName, &eaEmail, &eaHost, &eaPort, &eaUser, &eaPass,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan due enrollment: %w", err)
	}

	e.EmailAccountID = accountID.String
	e.LastContactedAt = timePtr(lastContacted)
	e.NextFollowupAt = timePtr(next)

	l.FirstName = stringPtr(first)
	l.LastName = stringPtr(last)
	l.Company = stringPtr(company)
	l.Title = stringPtr(title)
	l.Phone = stringPtr(phone)
	l.Website = stringPtr(website)
	l.LinkedinURL = stringPtr(linkedin)
	if err := fromJSON(custom, &l.CustomFields); err != nil {
		return nil, err
	}
	e.Lead = &l

	if eaID.Valid {
		e.EmailAccount = &model.EmailAccount{
			ID:           eaID.String,
			Name:         eaName.String,
			Email:        eaEmail.String,
			SMTPHost:     eaHost.String,
			SMTPPort:     int(eaPort.Int64),
			SMTPUsername: eaUser.String,
			SMTPPassword: eaPass.String,
		}
	}
	return &e, nil
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

var _ EnrollmentRepositoryInterface = (*EnrollmentRepository)(nil)
