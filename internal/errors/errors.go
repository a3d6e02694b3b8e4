// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

var (
	// ErrSequenceComplete signals that no step follows the enrollment's current step.
	ErrSequenceComplete = errors.New("sequence complete")

	ErrNoEmailAccounts  = errors.New("campaign has no email accounts configured")
	ErrNoSendingAccount = errors.New("enrollment has no sending account")
	ErrNoLead           = errors.New("enrollment has no lead")
	ErrNoVariants       = errors.New("sequence step has no subject/body variant pair")
	ErrNotFound         = errors.New("not found")
)

// ErrCampaignNotFound is returned when a campaign lookup misses.
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

func (e *ErrCampaignNotFound) Unwrap() error { return ErrNotFound }

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrLeadNotFound is returned when a lead lookup by id or email misses.
type ErrLeadNotFound struct {
	Key string
}

func (e *ErrLeadNotFound) Error() string {
	return fmt.Sprintf("lead %s not found", e.Key)
}

func (e *ErrLeadNotFound) Unwrap() error { return ErrNotFound }

func NewLeadNotFound(key string) error {
	return &ErrLeadNotFound{Key: key}
}

// IsNotFound reports whether err marks a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
