package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/mockinterview")
	t.Setenv("DISCORD_CLIENT_ID", "client")
	t.Setenv("DISCORD_CLIENT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.WebBind)
	assert.Equal(t, "http://localhost:3000", cfg.WebUIBaseURL)
	assert.Equal(t, "mon 10:00", cfg.OpenRegistrationAt)
	assert.Equal(t, "mock-interviews", cfg.AnnounceChannelName)
	assert.Equal(t, 5.0, cfg.SendRatePerSecond)
	assert.Equal(t, time.UTC, cfg.Location)

	open, form, announce, err := cfg.Triggers()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, open.Weekday)
	assert.Equal(t, 10, form.Hour)
	assert.Equal(t, time.Tuesday, announce.Weekday)
	assert.Equal(t, 11, announce.Hour)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DISCORD_REDIRECT_URI", "https://bot.example.com/api/auth/callback")
	t.Setenv("SCHEDULE_OPEN_REGISTRATION", "Wed 09:30")
	t.Setenv("SCHEDULE_TIMEZONE", "Asia/Tokyo")
	t.Setenv("SEND_RATE_PER_SECOND", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://bot.example.com", cfg.WebUIBaseURL)
	assert.Equal(t, "Asia/Tokyo", cfg.Location.String())
	assert.Equal(t, 2.5, cfg.SendRatePerSecond)

	open, _, _, err := cfg.Triggers()
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, open.Weekday)
	assert.Equal(t, 30, open.Minute)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing token", env: map[string]string{"DISCORD_TOKEN": ""}, wantErr: "DISCORD_TOKEN is required"},
		{name: "missing database", env: map[string]string{"DATABASE_URL": ""}, wantErr: "DATABASE_URL is required"},
		{name: "bad schedule", env: map[string]string{"SCHEDULE_FORM_TEAMS": "tuesday"}, wantErr: "SCHEDULE_FORM_TEAMS must look like"},
		{name: "bad timezone", env: map[string]string{"SCHEDULE_TIMEZONE": "Mars/Olympus"}, wantErr: "SCHEDULE_TIMEZONE"},
		{name: "zero rate", env: map[string]string{"SEND_RATE_PER_SECOND": "0"}, wantErr: "SEND_RATE_PER_SECOND"},
		{name: "rate not a number", env: map[string]string{"SEND_RATE_PER_SECOND": "fast"}, wantErr: "SEND_RATE_PER_SECOND must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExtractBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:3000", extractBaseURL("http://localhost:3000/api/auth/callback"))
	assert.Equal(t, "https://example.com", extractBaseURL("https://example.com/cb?x=1"))
	assert.Equal(t, "http://localhost:3000", extractBaseURL("not a url"))
}
