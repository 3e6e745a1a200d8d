package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "automail.log")
	closer, err := Setup("debug", path)
	require.NoError(t, err)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.WithField("group", "smtp").Debug("probe")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level=debug")
	assert.Contains(t, string(data), "group=smtp")
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestSetup_BadLevel(t *testing.T) {
	_, err := Setup("loud", "")
	assert.Error(t, err)
}

func TestSetup_EmptyFileDiscards(t *testing.T) {
	closer, err := Setup("", "")
	require.NoError(t, err)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	assert.NoError(t, closer.Close())
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
