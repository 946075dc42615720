package email

import (
	"testing"

	"github.com/askarbek/auth-service/internal/config"
	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender_RequiresConfiguration(t *testing.T) {
	log := logger.NewLogger()

	cases := []config.SMTPConfig{
		{},
		{Host: "smtp.example.com", Port: 587},
		{Host: "smtp.example.com", SenderEmail: "noreply@example.com"},
		{Port: 587, SenderEmail: "noreply@example.com"},
	}
	for _, cfg := range cases {
		_, err := NewSMTPSender(cfg, log)
		assert.Error(t, err)
	}
}

func TestNewSMTPSender_Configured(t *testing.T) {
	sender, err := NewSMTPSender(config.SMTPConfig{
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "noreply@example.com",
		Password:    "secret",
		SenderEmail: "noreply@example.com",
		SenderName:  "Auth Service",
		Encryption:  "starttls",
	}, logger.NewLogger())
	require.NoError(t, err)
	assert.NotNil(t, sender)
	assert.NotNil(t, sender.dialer.TLSConfig)
}
