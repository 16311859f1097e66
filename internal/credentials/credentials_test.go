package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/gate-remote/db"
)

func newTestStore(t *testing.T) *Store {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn)
}

func TestStore_SaveGetClear(t *testing.T) {
	s := newTestStore(t)

	configured, err := s.Configured()
	require.NoError(t, err)
	assert.False(t, configured)

	require.NoError(t, s.SaveAPIURL(" https://gate.test/ "))
	configured, err = s.Configured()
	require.NoError(t, err)
	assert.False(t, configured, "token still missing")

	require.NoError(t, s.SaveBearerToken("secret"))
	configured, err = s.Configured()
	require.NoError(t, err)
	assert.True(t, configured)

	url, ok, err := s.APIURL()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://gate.test/", url)

	require.NoError(t, s.Clear())
	_, ok, err = s.BearerToken()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RejectsEmptyValues(t *testing.T) {
	s := newTestStore(t)

	assert.Error(t, s.SaveAPIURL("  "))
	assert.Error(t, s.SaveBearerToken(""))
	assert.Error(t, s.SaveOpeningSeconds(0))
	assert.Error(t, s.SaveClosingSeconds(-3))
}

func TestDurations_FallBackToDefaults(t *testing.T) {
	s := newTestStore(t)
	d := NewDurations(s, 15, 20)

	assert.Equal(t, 15, d.OpeningSeconds())
	assert.Equal(t, 20, d.ClosingSeconds())

	require.NoError(t, s.SaveOpeningSeconds(5))
	assert.Equal(t, 5, d.OpeningSeconds())
	assert.Equal(t, 20, d.ClosingSeconds())

	require.NoError(t, db.SetSetting(s.conn, KeyClosingSeconds, "soon"))
	_, _, err := s.ClosingSeconds()
	assert.Error(t, err)
	assert.Equal(t, 20, d.ClosingSeconds())
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "****", MaskToken("abc"))
	assert.Equal(t, "****1234", MaskToken("secret-token-1234"))
}
