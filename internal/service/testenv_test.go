package service

import (
	"testing"
	"time"

	"github.com/credvault/credvault/internal/acl"
	"github.com/credvault/credvault/internal/audit"
	"github.com/credvault/credvault/internal/crypto"
	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
)

type testEnv struct {
	svc   *Services
	items *fakeItemRepo
	links *fakeLinkRepo
	tasks *fakeTaskRepo
	keys  *fakeKeyRepo
	chain crypto.KeyChain
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		items: newFakeItemRepo(),
		links: newFakeLinkRepo(),
		tasks: newFakeTaskRepo(),
		keys:  &fakeKeyRepo{},
		chain: crypto.NewKeyChain([]byte("auth-salt"), []byte("link-salt")),
	}

	log := logger.Nop()
	checker := acl.NewChecker(acl.NewActionCatalog(), audit.NopSink{}, log)

	gate := &MaintenanceGate{}
	holder := &keyHolder{}

	cfg := Config{
		DefaultLinkTTL:      time.Hour,
		DefaultMaxViews:     3,
		RotationBatchSize:   2,
		RotationParallelism: 2,
		ProgressQueueSize:   4,
	}

	env.svc = &Services{
		Auth:     NewMasterAuthService(env.keys, env.chain, holder, log),
		Vault:    NewVaultService(env.items, env.links, env.chain, checker, holder, gate, log),
		Links:    NewPublicLinkService(env.links, env.items, env.chain, checker, audit.NopSink{}, holder, log, cfg),
		Rotation: NewRotationService(env.items, env.tasks, env.keys, env.chain, checker, holder, gate, log, cfg),
	}

	return env
}

func fullProfile() *models.Profile {
	return &models.Profile{
		ItemView:     true,
		ItemViewPass: true,
		ItemCreate:   true,
		ItemEdit:     true,
		ItemEditPass: true,
		ItemDelete:   true,
		LinkCreate:   true,
		LinkRefresh:  true,
	}
}

func ownerPrincipal() models.Principal {
	return models.Principal{UserID: 1, GroupID: 1, Profile: fullProfile()}
}

func readOnlyPrincipal() models.Principal {
	return models.Principal{UserID: 2, GroupID: 1, Profile: &models.Profile{ItemView: true}}
}

func adminPrincipal() models.Principal {
	return models.Principal{UserID: 99, GroupID: 1, IsAdminApp: true}
}
