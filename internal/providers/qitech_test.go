// internal/providers/qitech_test.go
package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyToAnnualRate(t *testing.T) {
	assert.InDelta(t, 26.68, MonthlyToAnnualRate(1.99), 0.01)
	assert.InDelta(t, 19.42, MonthlyToAnnualRate(1.49), 0.01)
	assert.Equal(t, 0.0, MonthlyToAnnualRate(0))
}

func TestParseQITechPhone(t *testing.T) {
	parsed := parseQITechPhone("5511987654321")
	assert.Equal(t, "055", parsed["country_code"])
	assert.Equal(t, "11", parsed["area_code"])
	assert.Equal(t, "987654321", parsed["number"])

	parsed = parseQITechPhone("+55 (11) 98765-4321")
	assert.Equal(t, "11", parsed["area_code"])
	assert.Equal(t, "987654321", parsed["number"])

	parsed = parseQITechPhone("11987654321")
	assert.Equal(t, "11", parsed["area_code"])
	assert.Equal(t, "987654321", parsed["number"])
}

func TestParseQITechWebhook(t *testing.T) {
	payload, err := ParseQITechWebhook([]byte(`{
		"webhook_type": "debt",
		"key": "op-123",
		"status": "disbursed",
		"event_datetime": "2025-01-10T12:00:00Z"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "op-123", payload.Key)
	assert.Equal(t, "disbursed", payload.Status)

	_, err = ParseQITechWebhook([]byte(`{"status": "disbursed"}`))
	assert.Error(t, err)

	_, err = ParseQITechWebhook([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseClicksignWebhook(t *testing.T) {
	payload, err := ParseClicksignWebhook([]byte(`{
		"event": {"name": "sign"},
		"document": {"key": "doc-abc", "status": "running"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "sign", payload.Event.Name)
	assert.Equal(t, "doc-abc", payload.Document.Key)

	_, err = ParseClicksignWebhook([]byte(`{"event": {"name": ""}}`))
	assert.Error(t, err)
}
