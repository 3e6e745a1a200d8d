package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailcompose "github.com/nhle/automail/internal/compose"
	"github.com/nhle/automail/internal/model"
)

func TestStartPrefillsFromDraft(t *testing.T) {
	m := New(80, 30)
	m.SetFiles([]model.FileInfo{{ID: "f1", Filename: "cv.pdf", Size: 2048}})
	m.Start(model.Draft{
		ID:            "d1",
		Subject:       "Hello",
		Body:          "Body",
		Format:        model.FormatMarkdown,
		AttachmentIDs: []string{"f1"},
	})

	require.NotNil(t, m.form)
	assert.Equal(t, "Hello", m.fb.subject)
	assert.Equal(t, model.FormatMarkdown, m.fb.format)
	assert.Equal(t, string(ActionDirect), m.fb.action, "attachments need a direct send")
	assert.Contains(t, m.View(), "Edit draft")
}

func TestStartNewDefaults(t *testing.T) {
	m := New(80, 30)
	m.SetRecipients("2 teachers")
	m.Start(model.Draft{})

	assert.Equal(t, model.FormatPlain, m.fb.format)
	assert.Equal(t, string(ActionMailing), m.fb.action)
	assert.Contains(t, m.View(), "To: 2 teachers")
}

func TestSubmission(t *testing.T) {
	m := New(80, 30)
	m.Start(model.Draft{ID: "d1"})
	m.fb.subject = "  Invitation  "
	m.fb.body = "Dear professor"
	m.fb.action = string(ActionDirect)
	m.fb.cc = "a@example.edu; b@example.edu"
	m.fb.bcc = ""

	got := m.submission()
	assert.Equal(t, "d1", got.Draft.ID)
	assert.Equal(t, "Invitation", got.Draft.Subject)
	assert.Equal(t, ActionDirect, got.Action)
	assert.Equal(t, []string{"a@example.edu", "b@example.edu"}, got.Cc)
	assert.Empty(t, got.Bcc)

	m.fb.action = string(ActionMailing)
	got = m.submission()
	assert.Nil(t, got.Cc, "cc only applies to direct sends")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateAddresses(""))
	assert.NoError(t, validateAddresses("a@example.edu, Li <li@example.edu>"))
	assert.Error(t, validateAddresses("not-an-address"))

	assert.Error(t, validateRequired("Subject")("  "))

	m := New(80, 30)
	m.Start(model.Draft{})
	m.fb.attachmentIDs = []string{"f1"}
	assert.ErrorIs(t, m.validateAction(string(ActionMailing)), mailcompose.ErrAttachmentsUnsupported)
	assert.NoError(t, m.validateAction(string(ActionDirect)))
}
