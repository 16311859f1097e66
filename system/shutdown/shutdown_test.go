package shutdown

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/gate-remote/db"
)

type stopCounter struct{ calls int }

func (s *stopCounter) Shutdown() { s.calls++ }

func TestGraceful(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)

	ts := httptest.NewUnstartedServer(http.NotFoundHandler())
	ts.Start()
	defer ts.Close()

	gate := &stopCounter{}
	Graceful(ts.Config, gate, conn)

	assert.Equal(t, 1, gate.calls)
	assert.Error(t, conn.Ping())
}

func TestGraceful_NilParts(t *testing.T) {
	assert.NotPanics(t, func() { Graceful(nil, nil, nil) })
}

func TestShutdownWithError(t *testing.T) {
	var code int
	orig := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = orig })

	ShutdownWithError(errors.New("boom"), "fatal")
	assert.Equal(t, 1, code)
}
