package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("PUBLIC_BASE_URL", "https://bot.example.test/")
	t.Setenv("DB_PASSWORD", "pw")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://bot.example.test", cfg.App.PublicBaseURL)
	assert.Equal(t, "Asia/Taipei", cfg.App.Timezone)
	assert.Equal(t, 9, cfg.Work.StartHour)
	assert.Equal(t, 30, cfg.Work.StartMinute)
	assert.Equal(t, 17, cfg.Work.EndHour)
	assert.Equal(t, 60*time.Second, cfg.Work.HandshakeTimeout)
	assert.Equal(t, "zh-TW", cfg.Geocoding.Language)
	assert.Equal(t, time.Hour, cfg.JWT.AccessExpiration)
	assert.Equal(t, "Asia/Taipei", cfg.Location().String())
}

func TestLoad_Telegram(t *testing.T) {
	setRequired(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("REVIEW_CHAT_ID", "-1001234")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234), cfg.Telegram.ReviewChatID)
	assert.Equal(t, 30, cfg.Telegram.PollTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET_KEY": ""}},
		{"missing base url", map[string]string{"PUBLIC_BASE_URL": ""}},
		{"bad work start", map[string]string{"WORK_START": "9h"}},
		{"start after end", map[string]string{"WORK_START": "18:00"}},
		{"bad review chat", map[string]string{"REVIEW_CHAT_ID": "group"}},
		{"token without review chat", map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc"}},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_InMemoryNeedsNoDatabase(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("IN_MEMORY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.InMemory)
}
