// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/outreach-backend/internal/model"
)

// RenderTemplate fills {{placeholder}} tokens from the lead. Missing attributes
// render as empty strings; unknown placeholders are left untouched.
func RenderTemplate(template string, lead *model.Lead) string {
	if lead == nil || !strings.Contains(template, "{{") {
		return template
	}

	r := strings.NewReplacer(
		"{{firstName}}", model.Value(lead.FirstName),
		"{{lastName}}", model.Value(lead.LastName),
		"{{company}}", model.Value(lead.Company),
		"{{email}}", lead.Email,
		"{{title}}", model.Value(lead.Title),
		"{{phone}}", model.Value(lead.Phone),
		"{{website}}", model.Value(lead.Website),
		"{{linkedinUrl}}", model.Value(lead.LinkedinURL),
	)
	return r.Replace(template)
}
