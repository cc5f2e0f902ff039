package models

import "time"

// KDFParams are the Argon2id tuning parameters stored alongside the master
// key verification material, so that a deployment can change parameters
// without invalidating existing installations.
type KDFParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// MasterKeyMaterial is the persisted verification material for the master
// password. The password itself and the derived key are never stored: only
// the KDF salt and a keyed verification hash of the derived key.
//
// Created at installation, replaced only by a completed rotation.
type MasterKeyMaterial struct {
	Salt       []byte
	SaltedHash []byte
	Params     KDFParams
	UpdatedAt  time.Time
}
