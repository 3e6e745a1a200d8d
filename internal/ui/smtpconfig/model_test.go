package smtpconfig

import (
	"testing"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/api"
	"github.com/nhle/automail/internal/credential"
	"github.com/nhle/automail/internal/keys"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/tests/testutil"
)

func newView(t *testing.T) (Model, *testutil.FakeBackend, *credential.Store) {
	t.Helper()
	b := testutil.NewFakeBackend(t)
	secrets := credential.NewStore(keyring.NewArrayKeyring(nil))
	svc := api.NewSMTPClient(b.Services().SMTP)
	return New(svc, secrets, keys.DefaultKeyMap(), 80, 30), b, secrets
}

func sampleConfig() model.SMTPConfig {
	return model.SMTPConfig{
		Server:      "smtp.example.com",
		Port:        465,
		Username:    "sender",
		Password:    "secret",
		UseTLS:      true,
		SenderName:  "Lab Office",
		SenderEmail: "office@example.edu",
	}
}

func TestInit_NotConfigured(t *testing.T) {
	m, _, _ := newView(t)
	m, _ = m.Update(m.Init()())
	assert.Nil(t, m.config)
	assert.NoError(t, m.loadErr, "a missing configuration is not an error")
	assert.Contains(t, m.View(), "No SMTP configuration")
}

func TestInit_ShowsActiveConfig(t *testing.T) {
	m, b, _ := newView(t)
	b.SetSMTPConfig(sampleConfig())

	m, _ = m.Update(m.Init()())
	require.NotNil(t, m.config)
	assert.Contains(t, m.View(), "smtp.example.com:465")
	assert.Contains(t, m.View(), "Lab Office <office@example.edu>")
}

func TestSave_StoresPasswordInKeyring(t *testing.T) {
	m, b, secrets := newView(t)

	msg := m.saveConfig(sampleConfig())()
	m, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	assert.Equal(t, "office@example.edu", saved.Config.SenderEmail)
	assert.Equal(t, ModeResult, m.Mode())

	pw, err := secrets.Get(credential.SMTPPasswordKey)
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)

	stored, ok := b.SMTPConfig()
	require.True(t, ok)
	assert.Equal(t, "secret", stored.Password)
}

func TestSave_RejectedKeepsKeyringUntouched(t *testing.T) {
	m, _, secrets := newView(t)
	cfg := sampleConfig()
	cfg.Password = "bad"

	m, _ = m.Update(m.saveConfig(cfg)())
	assert.Error(t, m.resultErr)

	_, err := secrets.Get(credential.SMTPPasswordKey)
	assert.True(t, credential.IsNotFound(err))
}

func TestConfigFromForm(t *testing.T) {
	m, _, secrets := newView(t)
	require.NoError(t, secrets.Set(credential.SMTPPasswordKey, "kept"))

	c := sampleConfig()
	m.config = &c
	m.fillForm()
	assert.Equal(t, "465", m.fb.port)
	assert.Empty(t, m.fb.password, "passwords are never prefilled")

	cfg, err := m.configFromForm()
	require.NoError(t, err)
	assert.Equal(t, "kept", cfg.Password)

	m.fb.senderEmail = "not-an-email"
	_, err = m.configFromForm()
	assert.True(t, api.IsValidationError(err))

	m.fb.port = "abc"
	_, err = m.configFromForm()
	assert.Error(t, err)
}

func TestTest_UsesKeyringPassword(t *testing.T) {
	m, _, secrets := newView(t)
	cfg := sampleConfig()
	cfg.Password = model.MaskedPassword

	m, _ = m.Update(m.testConfig(cfg)())
	assert.Error(t, m.resultErr, "no saved password")

	require.NoError(t, secrets.Set(credential.SMTPPasswordKey, "secret"))
	m, _ = m.Update(m.testConfig(cfg)())
	assert.NoError(t, m.resultErr)

	require.NoError(t, secrets.Set(credential.SMTPPasswordKey, "bad"))
	m, _ = m.Update(m.testConfig(cfg)())
	assert.Error(t, m.resultErr)
}

func TestDelete(t *testing.T) {
	m, b, secrets := newView(t)
	b.SetSMTPConfig(sampleConfig())
	require.NoError(t, secrets.Set(credential.SMTPPasswordKey, "secret"))
	m, _ = m.Update(m.Init()())
	require.NotNil(t, m.config)

	m, _ = m.Update(m.deleteConfig(m.config.ID)())
	assert.NoError(t, m.resultErr)
	assert.Nil(t, m.config)

	_, ok := b.SMTPConfig()
	assert.False(t, ok)
	_, err := secrets.Get(credential.SMTPPasswordKey)
	assert.True(t, credential.IsNotFound(err))
}

func TestEscCloses(t *testing.T) {
	m, _, _ := newView(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}
