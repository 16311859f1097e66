package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/gate-remote/internal/config"
	"github.com/thatsimonsguy/gate-remote/internal/env"
)

func withServer(t *testing.T, status int, got *map[string]interface{}) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(got)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	origBase, origInit := baseURL, initialized
	t.Cleanup(func() {
		baseURL, initialized = origBase, origInit
		env.Cfg = nil
	})

	baseURL = srv.URL
	env.Cfg = &config.Config{NtfyTopic: "garage-gate"}
	Init()
}

func TestSend_PostsTopicTitleAndMessage(t *testing.T) {
	got := map[string]interface{}{}
	withServer(t, http.StatusOK, &got)

	require.True(t, Enabled())
	require.NoError(t, Send("Gate alert", "Obstruction detected"))

	assert.Equal(t, "garage-gate", got["topic"])
	assert.Equal(t, "Gate alert", got["title"])
	assert.Equal(t, "Obstruction detected", got["message"])
}

func TestSend_NonSuccessStatus(t *testing.T) {
	got := map[string]interface{}{}
	withServer(t, http.StatusTooManyRequests, &got)

	err := Notifier{}.Send("t", "m")
	assert.Error(t, err)
}

func TestSend_NotInitialized(t *testing.T) {
	orig := initialized
	initialized = false
	defer func() { initialized = orig }()

	assert.Error(t, Send("t", "m"))
}
