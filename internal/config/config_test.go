package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("NOTIFY_CONCURRENCY", "")
	t.Setenv("MAIL_DRIVER", "")

	LoadConfig()

	assert.Equal(t, "8080", AppConfig.ServerPort)
	assert.Equal(t, 4, AppConfig.NotifyConcurrency)
	assert.Equal(t, "log", AppConfig.MailDriver)
	assert.Len(t, AppConfig.JWTSecret, 32)
	assert.Equal(t, 10*time.Second, AppConfig.NotifySendTimeout)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("NOTIFY_CONCURRENCY", "8")
	t.Setenv("NOTIFY_SEND_TIMEOUT", "3s")
	t.Setenv("S3_USE_SSL", "true")

	LoadConfig()

	assert.Equal(t, "9090", AppConfig.ServerPort)
	assert.Equal(t, "secret", AppConfig.JWTSecret)
	assert.Equal(t, 8, AppConfig.NotifyConcurrency)
	assert.Equal(t, 3*time.Second, AppConfig.NotifySendTimeout)
	assert.True(t, AppConfig.S3UseSSL)
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))
}
