// internal/repository/lead_repository.go
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

type LeadRepositoryInterface interface {
	Create(ctx context.Context, l *model.Lead) error
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	GetByEmail(ctx context.Context, email string) (*model.Lead, error)
}

type LeadRepository struct {
	DB *db.DB
}

const leadColumns = `id, email, first_name, last_name, company, title, phone, website, linkedin_url, custom_fields, status, created_at`

func (r *LeadRepository) Create(ctx context.Context, l *model.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = "active"
	}
	if l.CustomFields == nil {
		l.CustomFields = map[string]any{}
	}
	l.CreatedAt = time.Now().UTC()

	custom, err := toJSON(l.CustomFields)
	if err != nil {
		return err
	}

	query := r.DB.Rebind(`
        INSERT INTO leads (` + leadColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `)
	_, err = r.DB.ExecContext(ctx, query,
		l.ID, l.Email,
		nullableString(l.FirstName), nullableString(l.LastName), nullableString(l.Company),
		nullableString(l.Title), nullableString(l.Phone), nullableString(l.Website),
		nullableString(l.LinkedinURL), custom, l.Status, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	query := r.DB.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE id=$1`)
	l, err := scanLead(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewLeadNotFound(id)
		}
		return nil, err
	}
	return l, nil
}

func (r *LeadRepository) GetByEmail(ctx context.Context, email string) (*model.Lead, error) {
	query := r.DB.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE email=$1`)
	l, err := scanLead(r.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewLeadNotFound(email)
		}
		return nil, err
	}
	return l, nil
}

func scanLead(row scanner) (*model.Lead, error) {
	var (
		l                                  model.Lead
		first, last, company, title, phone sql.NullString
		website, linkedin                  sql.NullString
		custom                             []byte
	)
	err := row.Scan(&l.ID, &l.Email, &first, &last, &company, &title, &phone, &website, &linkedin, &custom, &l.Status, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
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
	return &l, nil
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
