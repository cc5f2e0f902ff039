package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterAuthService_SetupAndUnlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "correct horse"))

	env.svc.Auth.Lock()
	require.NoError(t, env.svc.Auth.Unlock(ctx, "correct horse"))
}

func TestMasterAuthService_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "correct horse"))
	env.svc.Auth.Lock()

	err := env.svc.Auth.Unlock(ctx, "battery staple")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestMasterAuthService_UnlockBeforeSetup(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.Auth.Unlock(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestMasterAuthService_SetupTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))

	err := env.svc.Auth.Setup(ctx, "other")
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}
