// Package datastore defines the persistence interface for NVD records.
package datastore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quay/cvssinfo"
)

// Fingerprint is some datum a fetcher can use to detect changed data, a
// checksum or HTTP date or whatever suits the source. It's stored and
// returned opaquely.
type Fingerprint string

// UpdateOperation is a record of one successful update pass.
type UpdateOperation struct {
	Ref         uuid.UUID   `json:"ref"`
	Updater     string      `json:"updater"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Date        time.Time   `json:"date"`
}

// Store is the interface for persisting and querying NVD records.
type Store interface {
	// UpdateVectors creates a new update operation holding recs and makes
	// it the latest for the named updater.
	UpdateVectors(ctx context.Context, updater string, fp Fingerprint, recs []cvssinfo.Record) (uuid.UUID, error)
	// GetVectors reports the records of the named CVEs out of each
	// updater's latest update operation. CVE IDs are canonically
	// uppercase; lookups are normalized.
	GetVectors(ctx context.Context, cves []string) (map[string][]cvssinfo.Record, error)
	// GetUpdateOperations reports update operations newest first,
	// optionally filtered by updater name.
	GetUpdateOperations(ctx context.Context, updaters ...string) ([]UpdateOperation, error)
	// GetLatestFingerprint reports the fingerprint of the updater's newest
	// update operation, or the empty fingerprint when none exists.
	GetLatestFingerprint(ctx context.Context, updater string) (Fingerprint, error)
	// DeleteUpdateOperations removes the named operations and their
	// records, reporting how many operations were removed.
	DeleteUpdateOperations(ctx context.Context, refs ...uuid.UUID) (int64, error)
	// GC removes all update operations beyond the keep newest per updater,
	// reporting how many were removed.
	GC(ctx context.Context, keep int) (int64, error)
	// Close releases held resources.
	Close() error
}
