package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/gate-remote/internal/config"
	"github.com/thatsimonsguy/gate-remote/internal/model"
	"github.com/thatsimonsguy/gate-remote/internal/orchestrator"
)

func TestBuild_SeedsCredentialsOnce(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "gate.db")
	cfg.APIURL = "http://gate.local"
	cfg.BearerToken = "seed-token"
	cfg.OpeningSeconds = 12

	stack, err := Build(&cfg)
	require.NoError(t, err)

	url, ok, err := stack.Credentials.APIURL()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://gate.local", url)
	assert.Equal(t, 12, stack.Durations.OpeningSeconds())
	assert.Equal(t, orchestrator.Idle{Gate: model.GateUnknown}, stack.Orchestrator.State())

	require.NoError(t, stack.Credentials.SaveBearerToken("edited-token"))
	stack.Close()

	// a restart with the same seeds keeps the user's edit
	stack, err = Build(&cfg)
	require.NoError(t, err)
	defer stack.Close()

	token, ok, err := stack.Credentials.BearerToken()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "edited-token", token)
}
