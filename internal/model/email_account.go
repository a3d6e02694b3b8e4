// internal/model/email_account.go
package model

import "time"

type EmailAccount struct {
	ID                  string    `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Email               string    `db:"email" json:"email"`
	SMTPHost            string    `db:"smtp_host" json:"smtp_host"`
	SMTPPort            int       `db:"smtp_port" json:"smtp_port"`
	SMTPUsername        string    `db:"smtp_username" json:"smtp_username"`
	SMTPPassword        string    `db:"smtp_password" json:"-"`
	DailyLimit          int       `db:"daily_limit" json:"daily_limit"`
	WarmupEnabled       bool      `db:"warmup_enabled" json:"warmup_enabled"`
	WarmupDailyIncrease int       `db:"warmup_daily_increase" json:"warmup_daily_increase"`
	Status              string    `db:"status" json:"status"`
	HealthScore         int       `db:"health_score" json:"health_score"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}
