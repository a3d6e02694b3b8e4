// internal/repository/store.go
package repository

import (
	"context"
	"time"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// Store groups the operations the send pipeline performs against the database.
type Store struct {
	Enrollments EnrollmentRepositoryInterface
	Sequences   SequenceRepositoryInterface
	Logs        EmailLogRepositoryInterface
}

func NewStore(conn *db.DB) *Store {
	return &Store{
		Enrollments: &EnrollmentRepository{DB: conn},
		Sequences:   &SequenceRepository{DB: conn},
		Logs:        &EmailLogRepository{DB: conn},
	}
}

func (s *Store) ListDueEnrollments(ctx context.Context, now time.Time, limit int) ([]*model.Enrollment, error) {
	return s.Enrollments.ListDue(ctx, now, limit)
}

func (s *Store) GetStep(ctx context.Context, campaignID string, stepNumber int) (*model.SequenceStep, error) {
	return s.Sequences.GetStep(ctx, campaignID, stepNumber)
}

func (s *Store) InsertEmailLog(ctx context.Context, l *model.EmailLog) error {
	return s.Logs.Insert(ctx, l)
}

func (s *Store) MarkCompleted(ctx context.Context, enrollmentID string) error {
	return s.Enrollments.MarkCompleted(ctx, enrollmentID)
}

func (s *Store) MarkFailed(ctx context.Context, enrollmentID string) error {
	return s.Enrollments.MarkFailed(ctx, enrollmentID)
}

func (s *Store) RecordSent(ctx context.Context, enrollmentID string, step int, status string, lastContacted time.Time, nextFollowup *time.Time) error {
	return s.Enrollments.RecordSent(ctx, enrollmentID, step, status, lastContacted, nextFollowup)
}
