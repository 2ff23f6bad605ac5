package api

import (
	"fmt"
	"testing"
	"time"

	"github.com/factchecker/veritas/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboards_EvictedWithExpiredSessions(t *testing.T) {
	sessions := auth.NewManager(50 * time.Millisecond)
	dashes := newDashboards(nil, sessions)

	for i := 0; i < 100; i++ {
		s, err := sessions.Login(fmt.Sprintf("tok-%d", i), "user")
		require.NoError(t, err)
		dashes.get(s)
	}
	require.Equal(t, 100, dashes.count())

	time.Sleep(120 * time.Millisecond)
	sessions.Purge()

	assert.Equal(t, 0, dashes.count())
	assert.Equal(t, 0, sessions.Count())
}

func TestDashboards_DroppedOnLogout(t *testing.T) {
	sessions := auth.NewManager(time.Hour)
	dashes := newDashboards(nil, sessions)

	s, err := sessions.Login("tok", "alice")
	require.NoError(t, err)
	first := dashes.get(s)
	assert.Same(t, first, dashes.get(s))
	dashes.get(nil)
	require.Equal(t, 2, dashes.count())

	require.NoError(t, sessions.Logout("tok"))
	assert.Equal(t, 1, dashes.count())
}

func TestDashboards_EndedSessionNotRetained(t *testing.T) {
	sessions := auth.NewManager(time.Hour)
	dashes := newDashboards(nil, sessions)

	s, err := sessions.Login("tok", "alice")
	require.NoError(t, err)
	require.NoError(t, sessions.Logout("tok"))

	assert.NotNil(t, dashes.get(s))
	assert.Equal(t, 0, dashes.count())
}
