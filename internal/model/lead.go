// internal/model/lead.go
package model

import "time"

// Lead is a contact enrolled into campaigns. Optional attributes are nil when unset.
type Lead struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	FirstName    *string        `db:"first_name" json:"first_name"`
	LastName     *string        `db:"last_name" json:"last_name"`
	Company      *string        `db:"company" json:"company"`
	Title        *string        `db:"title" json:"title"`
	Phone        *string        `db:"phone" json:"phone"`
	Website      *string        `db:"website" json:"website"`
	LinkedinURL  *string        `db:"linkedin_url" json:"linkedin_url"`
	CustomFields map[string]any `db:"custom_fields" json:"custom_fields"`
	Status       string         `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Value dereferences an optional attribute, treating nil as empty.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
