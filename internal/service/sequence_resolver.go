package service

import (
	"context"
	"fmt"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type StepSource interface {
	GetStep(ctx context.Context, campaignID string, stepNumber int) (*model.SequenceStep, error)
}

// ResolveNextStep loads step current+1. A missing step returns
// ErrSequenceComplete; any other error means the lookup should be retried
// on a later run.
func ResolveNextStep(ctx context.Context, src StepSource, campaignID string, current int) (*model.SequenceStep, error) {
	next := current + 1
	step, err := src.GetStep(ctx, campaignID, next)
	if err != nil {
		return nil, fmt.Errorf("resolve step %d of campaign %s: %w", next, campaignID, err)
	}
	if step == nil {
		return nil, appErrors.ErrSequenceComplete
	}
	return step, nil
}
