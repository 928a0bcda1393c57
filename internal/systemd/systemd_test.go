package systemd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")

	ln, err := Listener()
	require.NoError(t, err)
	assert.Nil(t, ln)

	assert.NoError(t, NotifyReady())
	assert.NoError(t, NotifyStopping())
}
