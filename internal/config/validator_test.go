package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateAPIKey(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		key      string
		provider string
		wantErr  bool
	}{
		{"valid anthropic", "sk-ant-api03-xxxx", "anthropic", false},
		{"valid openai", "sk-proj-xxxx", "openai", false},
		{"empty key", "", "openai", true},
		{"anthropic without prefix", "sk-xxxx", "anthropic", true},
		{"openai without prefix", "key-xxxx", "openai", true},
		{"unknown provider", "abc", "gemini", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateAPIKey(tt.key, tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateTelegramToken(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTelegramToken("123456789:ABCdefGHIjklMNOpqrsTUVwxyz"))
	assert.Error(t, v.ValidateTelegramToken(""))
	assert.Error(t, v.ValidateTelegramToken("no-colon-token"))
	assert.Error(t, v.ValidateTelegramToken("abc:123"))
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	cfg := DefaultConfig()
	cfg.Telegram.Enabled = false
	cfg.Providers = []ProviderConfig{{ID: "a", Provider: "openai", APIKey: "sk-xxx"}}
	assert.NoError(t, v.Validate(cfg))

	noProviders := DefaultConfig()
	noProviders.Telegram.Enabled = false
	assert.Error(t, v.Validate(noProviders))

	badTemp := DefaultConfig()
	badTemp.Telegram.Enabled = false
	badTemp.Providers = cfg.Providers
	badTemp.Model.Temperature = 1.5
	assert.Error(t, v.Validate(badTemp))

	badTimeout := DefaultConfig()
	badTimeout.Telegram.Enabled = false
	badTimeout.Providers = cfg.Providers
	badTimeout.Turn.TimeoutSeconds = 0
	assert.Error(t, v.Validate(badTimeout))
}
