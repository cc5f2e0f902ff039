package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credvault/credvault/models"
)

func createLinkedItem(t *testing.T, env *testEnv, secret []byte, opts LinkOptions) models.PublicLink {
	t.Helper()
	ctx := context.Background()
	owner := ownerPrincipal()

	item, err := env.svc.Vault.Create(ctx, owner, models.VaultItem{Name: "shared"}, secret)
	require.NoError(t, err)

	link, err := env.svc.Links.Create(ctx, owner, item.ID, opts)
	require.NoError(t, err)

	return link
}

func TestPublicLinkService_CreateAndRedeem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))
	link := createLinkedItem(t, env, []byte("shared-secret"), LinkOptions{})

	assert.Len(t, link.Hash, 43)
	assert.Equal(t, int64(3), link.MaxViews, "default policy applies")

	got, err := env.svc.Links.Redeem(ctx, link.Hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared-secret"), got.Plaintext)
	assert.Equal(t, int64(2), got.ViewsLeft)
}

func TestPublicLinkService_RedeemWorksWhileVaultLocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))
	link := createLinkedItem(t, env, []byte("shared-secret"), LinkOptions{})

	// The snapshot key depends only on the link hash and the server salt,
	// so redemption must not need the master key.
	env.svc.Auth.Lock()

	got, err := env.svc.Links.Redeem(ctx, link.Hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared-secret"), got.Plaintext)
}

func TestPublicLinkService_ViewBound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))
	link := createLinkedItem(t, env, []byte("s"), LinkOptions{MaxViews: 2})

	_, err := env.svc.Links.Redeem(ctx, link.Hash)
	require.NoError(t, err)
	_, err = env.svc.Links.Redeem(ctx, link.Hash)
	require.NoError(t, err)

	_, err = env.svc.Links.Redeem(ctx, link.Hash)
	assert.ErrorIs(t, err, ErrLinkExhausted)
}

func TestPublicLinkService_Expiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))
	link := createLinkedItem(t, env, []byte("s"), LinkOptions{TTL: time.Minute})

	env.svc.Links.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	// Expired beats exhausted even though views remain.
	_, err := env.svc.Links.Redeem(ctx, link.Hash)
	assert.ErrorIs(t, err, ErrLinkExpired)
}

func TestPublicLinkService_ConcurrentRedeemSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))
	link := createLinkedItem(t, env, []byte("s"), LinkOptions{MaxViews: 1})

	var wg sync.WaitGroup
	var succeeded atomic.Int64

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.Links.Redeem(ctx, link.Hash); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), succeeded.Load(), "exactly one of the racing redemptions may win")
}

func TestPublicLinkService_RedeemUnknownHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))

	_, err := env.svc.Links.Redeem(ctx, "nope")
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestPublicLinkService_RedeemReturnsSnapshotNotLiveSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := ownerPrincipal()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))

	item, err := env.svc.Vault.Create(ctx, owner, models.VaultItem{Name: "x"}, []byte("v1"))
	require.NoError(t, err)
	link, err := env.svc.Links.Create(ctx, owner, item.ID, LinkOptions{})
	require.NoError(t, err)

	require.NoError(t, env.svc.Vault.Update(ctx, owner, item.ID, 1, []byte("v2")))

	got, err := env.svc.Links.Redeem(ctx, link.Hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got.Plaintext, "the snapshot is frozen at creation time")
}

func TestPublicLinkService_Refresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := ownerPrincipal()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))

	item, err := env.svc.Vault.Create(ctx, owner, models.VaultItem{Name: "x"}, []byte("v1"))
	require.NoError(t, err)
	link, err := env.svc.Links.Create(ctx, owner, item.ID, LinkOptions{MaxViews: 2})
	require.NoError(t, err)

	_, err = env.svc.Links.Redeem(ctx, link.Hash)
	require.NoError(t, err)

	require.NoError(t, env.svc.Vault.Update(ctx, owner, item.ID, 1, []byte("v2")))
	require.NoError(t, env.svc.Links.Refresh(ctx, owner, link.ID))

	// Same hash, current secret, view budget restored.
	got, err := env.svc.Links.Redeem(ctx, link.Hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Plaintext)
	assert.Equal(t, int64(1), got.ViewsLeft)
}

func TestPublicLinkService_CreateDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := ownerPrincipal()

	require.NoError(t, env.svc.Auth.Setup(ctx, "pw"))

	item, err := env.svc.Vault.Create(ctx, owner, models.VaultItem{Name: "x"}, []byte("s"))
	require.NoError(t, err)

	_, err = env.svc.Links.Create(ctx, readOnlyPrincipal(), item.ID, LinkOptions{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
