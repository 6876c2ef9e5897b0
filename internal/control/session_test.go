package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionStoreAuthRequiredReflectsToken(t *testing.T) {
	withToken := newSessionStore("secret")
	defer withToken.close()
	require.True(t, withToken.authRequired())

	noToken := newSessionStore("")
	require.False(t, noToken.authRequired())
}

func TestSessionStoreAuthenticateRejectsWrongToken(t *testing.T) {
	s := newSessionStore("secret")
	defer s.close()

	_, ok := s.authenticate("wrong", "client")
	require.False(t, ok)
}

func TestSessionStoreAuthenticateIssuesTouchableSession(t *testing.T) {
	s := newSessionStore("secret")
	defer s.close()

	sess, ok := s.authenticate("secret", "client")
	require.True(t, ok)
	require.NotEmpty(t, sess.id)
	require.True(t, s.touch(sess.id))
}

func TestSessionStoreTouchUnknownIDFails(t *testing.T) {
	s := newSessionStore("secret")
	defer s.close()
	require.False(t, s.touch("not-a-real-id"))
}

func TestSessionStoreSweepEvictsExpiredSessions(t *testing.T) {
	s := newSessionStore("secret")
	defer s.close()

	sess, ok := s.authenticate("secret", "client")
	require.True(t, ok)

	s.mu.Lock()
	s.sessions[sess.id].expiresAt = time.Now().Add(-time.Second)
	s.mu.Unlock()

	s.sweep()
	require.False(t, s.touch(sess.id))
}
