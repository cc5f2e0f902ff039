package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-d database DSN
//	-driver sql driver name ("pgx" or "sqlite3")
//	-c/-config json file path with configs
//	-auth-salt master-key verification salt
//	-link-salt public link key derivation salt
//	-link-ttl default public link lifetime (e.g., "1h", "24h")
//	-link-max-views default public link view bound
//	-batch-size rotation batch size
//	-parallelism rotation per-batch parallelism
func ParseFlags() *StructuredConfig {
	var databaseDSN string
	var databaseDriver string
	var jsonConfigPath string
	var authSalt string
	var linkSalt string
	var linkTTL time.Duration
	var linkMaxViews int64
	var batchSize int
	var parallelism int

	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&databaseDriver, "driver", "", "SQL driver name (pgx, sqlite3)")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&authSalt, "auth-salt", "", "Master-key verification salt")
	flag.StringVar(&linkSalt, "link-salt", "", "Public link key derivation salt")
	flag.DurationVar(&linkTTL, "link-ttl", 0, "Default public link TTL (e.g., 1h, 24h)")
	flag.Int64Var(&linkMaxViews, "link-max-views", 0, "Default public link view bound")
	flag.IntVar(&batchSize, "batch-size", 0, "Rotation batch size")
	flag.IntVar(&parallelism, "parallelism", 0, "Rotation per-batch parallelism")

	flag.Parse()

	return &StructuredConfig{
		Vault: Vault{
			AuthSalt:        authSalt,
			LinkSalt:        linkSalt,
			DefaultLinkTTL:  linkTTL,
			DefaultMaxViews: linkMaxViews,
		},
		Storage: Storage{
			DB: DB{
				Driver: databaseDriver,
				DSN:    databaseDSN,
			},
		},
		Rotation: Rotation{
			BatchSize:   batchSize,
			Parallelism: parallelism,
		},
		Audit:        Audit{},
		JSONFilePath: jsonConfigPath,
	}
}
