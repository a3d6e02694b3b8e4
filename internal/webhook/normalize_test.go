package webhook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/webhook"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantFound bool
		subject   string
		body      string
	}{
		{name: "flat object", raw: `{"subject":"S","body":"B"}`, wantFound: true, subject: "S", body: "B"},
		{name: "array takes first element", raw: `[{"subject":"first"},{"subject":"second"}]`, wantFound: true, subject: "first"},
		{name: "output wrapper", raw: `{"output":{"subject":"wrapped","body":"inner"}}`, wantFound: true, subject: "wrapped", body: "inner"},
		{name: "array then output", raw: `[{"output":{"body":"deep"}}]`, wantFound: true, body: "deep"},
		{name: "empty array", raw: `[]`},
		{name: "scalar", raw: `"just text"`},
		{name: "output not an object", raw: `{"output":"text"}`},
		{name: "null output is ignored", raw: `{"output":null,"subject":"kept"}`, wantFound: true, subject: "kept"},
		{name: "empty string output is ignored", raw: `{"output":"","subject":"S"}`, wantFound: true, subject: "S"},
		{name: "false output is ignored", raw: `{"output":false,"body":"B"}`, wantFound: true, body: "B"},
		{name: "zero output is ignored", raw: `[{"output":0,"subject":"S","body":"B"}]`, wantFound: true, subject: "S", body: "B"},
		{name: "true output replaces the object", raw: `{"output":true,"subject":"S"}`},
		{name: "array output replaces the object", raw: `{"output":[],"subject":"S"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := webhook.Normalize([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, res.Found())
			assert.JSONEq(t, tt.raw, string(res.Body))

			subject, ok := res.String("subject")
			assert.Equal(t, tt.subject != "", ok)
			assert.Equal(t, tt.subject, subject)

			body, ok := res.String("body")
			assert.Equal(t, tt.body != "", ok)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	_, err := webhook.Normalize([]byte(`{`))
	assert.Error(t, err)
}

func TestResult_StringRejectsEmptyAndNonString(t *testing.T) {
	res, err := webhook.Normalize([]byte(`{"subject":"","body":42,"custom":"x"}`))
	require.NoError(t, err)

	_, ok := res.String("subject")
	assert.False(t, ok)
	_, ok = res.String("body")
	assert.False(t, ok)
	v, ok := res.String("custom")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.JSONEq(t, `{"subject":"","body":42,"custom":"x"}`, string(res.FieldsJSON()))
}

func TestNoResult(t *testing.T) {
	assert.False(t, webhook.NoResult.Found())
	assert.Nil(t, webhook.NoResult.FieldsJSON())
	_, ok := webhook.NoResult.String("subject")
	assert.False(t, ok)
}
