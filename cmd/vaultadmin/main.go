// SPDX-License-Identifier: Apache-2.0

// vaultadmin is the operational entry point of the credvault engine: it
// applies schema migrations and drives the administrative flows that need
// the master password (installation, rotation).
//
// Usage:
//
//	vaultadmin [flags] migrate
//	vaultadmin [flags] setup     # VAULT_MASTER_PASSWORD
//	vaultadmin [flags] rotate    # VAULT_MASTER_PASSWORD, VAULT_NEW_MASTER_PASSWORD
//	vaultadmin [flags] status <task-id>
//
// Master passwords are read from the environment so they never appear in
// the process argument list.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/credvault/credvault/internal/acl"
	"github.com/credvault/credvault/internal/audit"
	"github.com/credvault/credvault/internal/config"
	"github.com/credvault/credvault/internal/crypto"
	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/internal/service"
	"github.com/credvault/credvault/internal/store"
	"github.com/credvault/credvault/migrations"
	"github.com/credvault/credvault/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("vaultadmin")

	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx := log.WithContext(context.Background())

	db, err := openDB(ctx, cfg.Storage.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	defer db.Close()

	if err := migrations.Run(ctx, db.DB.DB, cfg.Storage.DB.Driver); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}

	command := flag.Arg(0)
	if command == "" || command == "migrate" {
		log.Info().Msg("database schema is up to date")
		return
	}

	sink := audit.NewLogSink(log, cfg.Audit.QueueSize)
	defer sink.Close()

	checker := acl.NewChecker(acl.NewActionCatalog(), sink, log)
	chain := crypto.NewKeyChain([]byte(cfg.Vault.AuthSalt), []byte(cfg.Vault.LinkSalt))

	services := service.NewServices(db.Repos, chain, checker, sink, log, service.Config{
		DefaultLinkTTL:      cfg.Vault.DefaultLinkTTL,
		DefaultMaxViews:     cfg.Vault.DefaultMaxViews,
		RotationBatchSize:   cfg.Rotation.BatchSize,
		RotationParallelism: cfg.Rotation.Parallelism,
		ProgressQueueSize:   cfg.Rotation.ProgressQueueSize,
	})

	switch command {
	case "setup":
		runSetup(ctx, log, services)
	case "rotate":
		runRotate(ctx, log, services)
	case "status":
		runStatus(ctx, log, services, flag.Arg(1))
	default:
		log.Fatal().Str("command", command).Msg("unknown command")
	}
}

type adminDB struct {
	DB    *store.DB
	Repos *store.Repositories
}

func (a *adminDB) Close() {
	_ = a.DB.Close()
}

func openDB(ctx context.Context, cfg config.DB) (*adminDB, error) {
	var db *store.DB
	var err error

	switch cfg.Driver {
	case "pgx":
		db, err = store.NewConnectPostgres(ctx, cfg.DSN)
	case "sqlite3":
		db, err = store.NewConnectSQLite(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return &adminDB{DB: db, Repos: store.NewRepositories(db)}, nil
}

func runSetup(ctx context.Context, log *logger.Logger, services *service.Services) {
	password := os.Getenv("VAULT_MASTER_PASSWORD")
	if password == "" {
		log.Fatal().Msg("VAULT_MASTER_PASSWORD must be set")
	}

	if err := services.Auth.Setup(ctx, password); err != nil {
		log.Fatal().Err(err).Msg("installation failed")
	}

	log.Info().Msg("vault initialised")
}

func runRotate(ctx context.Context, log *logger.Logger, services *service.Services) {
	oldPassword := os.Getenv("VAULT_MASTER_PASSWORD")
	newPassword := os.Getenv("VAULT_NEW_MASTER_PASSWORD")
	if oldPassword == "" || newPassword == "" {
		log.Fatal().Msg("VAULT_MASTER_PASSWORD and VAULT_NEW_MASTER_PASSWORD must be set")
	}

	admin := models.Principal{IsAdminApp: true}

	taskID, progress, err := services.Rotation.Start(ctx, admin, oldPassword, newPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("rotation could not start")
	}

	log.Info().Str("task_id", taskID.String()).Msg("rotation started")

	for p := range progress {
		log.Info().
			Str("task_id", p.TaskID.String()).
			Int64("processed", p.ProcessedItems).
			Int64("total", p.TotalItems).
			Msg("rotation progress")
	}

	task, err := services.Rotation.Poll(ctx, taskID)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading rotation result")
	}

	reportTask(log, task)

	if task.Status != models.RotationComplete {
		os.Exit(1)
	}
}

func runStatus(ctx context.Context, log *logger.Logger, services *service.Services, rawID string) {
	taskID, err := uuid.Parse(rawID)
	if err != nil {
		log.Fatal().Str("task_id", rawID).Msg("status requires a valid task id")
	}

	task, err := services.Rotation.Poll(ctx, taskID)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading rotation task")
	}

	reportTask(log, task)
}

func reportTask(log *logger.Logger, task models.RotationTask) {
	event := log.Info()
	if task.Status == models.RotationPartialFailure {
		event = log.Error()
	}

	event.
		Str("task_id", task.TaskID.String()).
		Str("status", string(task.Status)).
		Int64("processed", task.ProcessedItems).
		Int64("total", task.TotalItems).
		Ints64("failed_item_ids", task.FailedItemIDs).
		Msg("rotation task state")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
