// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
)

// MasterKeyRepository persists the single master key verification row. The
// table holds exactly one row (id = 1); Save upserts it.
type MasterKeyRepository struct {
	*DB
}

func NewMasterKeyRepository(db *DB) *MasterKeyRepository {
	return &MasterKeyRepository{DB: db}
}

func (r *MasterKeyRepository) Get(ctx context.Context) (models.MasterKeyMaterial, error) {
	var m models.MasterKeyMaterial

	row := r.QueryRowContext(ctx, querySelectMasterKey)
	err := row.Scan(&m.Salt, &m.SaltedHash,
		&m.Params.Time, &m.Params.MemoryKiB, &m.Params.Threads, &m.Params.KeyLen,
		&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MasterKeyMaterial{}, ErrMasterKeyNotFound
		}

		return models.MasterKeyMaterial{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return m, nil
}

func (r *MasterKeyRepository) Save(ctx context.Context, material models.MasterKeyMaterial) error {
	log := logger.FromContext(ctx)

	_, err := r.ExecContext(ctx, queryUpsertMasterKey,
		material.Salt, material.SaltedHash,
		material.Params.Time, material.Params.MemoryKiB, material.Params.Threads, material.Params.KeyLen,
		material.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Str("func", "MasterKeyRepository.Save").Msg("error upserting master key material")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	log.Debug().Str("func", "MasterKeyRepository.Save").Msg("master key material saved")

	return nil
}
