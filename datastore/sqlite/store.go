package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quay/zlog"

	"github.com/quay/cvssinfo"
	"github.com/quay/cvssinfo/datastore"
)

const (
	insertUpdateOperation = `INSERT INTO update_operation (ref, updater, fingerprint, date) VALUES (?, ?, ?, ?) RETURNING id;`
	insertVector          = `INSERT INTO vector (uo_id, cve, version, vector, base_score) VALUES (?, ?, ?, ?, ?);`
	latestFingerprint     = `SELECT fingerprint FROM update_operation WHERE updater = ? ORDER BY id DESC LIMIT 1;`
	expireOperations      = `DELETE FROM update_operation WHERE id NOT IN (
	SELECT id FROM (
		SELECT id, ROW_NUMBER() OVER (PARTITION BY updater ORDER BY id DESC) AS rank
		FROM update_operation
	) WHERE rank <= ?
);`
)

// UpdateVectors implements datastore.Store.
func (s *Store) UpdateVectors(ctx context.Context, updater string, fp datastore.Fingerprint, recs []cvssinfo.Record) (_ uuid.UUID, err error) {
	ctx = zlog.ContextWithValues(ctx, "component", "datastore/sqlite/Store.UpdateVectors")
	defer timeQuery("updatevectors", &err)()
	ref := uuid.New()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()
	var id int64
	err = tx.QueryRowContext(ctx, insertUpdateOperation,
		ref.String(), updater, string(fp), time.Now().UTC().Format(time.RFC3339)).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: insert update operation: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertVector)
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()
	for i := range recs {
		r := &recs[i]
		if _, err := stmt.ExecContext(ctx, id, strings.ToUpper(r.CVE), r.Version, r.Vector, r.BaseScore); err != nil {
			return uuid.Nil, fmt.Errorf("sqlite: insert vector: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	zlog.Debug(ctx).
		Str("updater", updater).
		Stringer("ref", ref).
		Int("count", len(recs)).
		Msg("update operation committed")
	return ref, nil
}

// GetVectors implements datastore.Store.
func (s *Store) GetVectors(ctx context.Context, cves []string) (_ map[string][]cvssinfo.Record, err error) {
	defer timeQuery("getvectors", &err)()
	out := make(map[string][]cvssinfo.Record)
	if len(cves) == 0 {
		return out, nil
	}
	ids := make([]string, len(cves))
	for i, c := range cves {
		ids[i] = strings.ToUpper(c)
	}
	query, args, err := buildGetVectorsQuery(ids)
	if err != nil {
		return nil, fmt.Errorf("sqlite: build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r cvssinfo.Record
		if err := rows.Scan(&r.CVE, &r.Version, &r.Vector, &r.BaseScore); err != nil {
			return nil, fmt.Errorf("sqlite: scan error: %w", err)
		}
		out[r.CVE] = append(out[r.CVE], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: sql error: %w", err)
	}
	return out, nil
}

// GetUpdateOperations implements datastore.Store.
func (s *Store) GetUpdateOperations(ctx context.Context, updaters ...string) (_ []datastore.UpdateOperation, err error) {
	defer timeQuery("getupdateoperations", &err)()
	query, args, err := buildGetUpdateOperationsQuery(updaters)
	if err != nil {
		return nil, fmt.Errorf("sqlite: build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()
	var out []datastore.UpdateOperation
	for rows.Next() {
		var uo datastore.UpdateOperation
		var ref, fp, date string
		if err := rows.Scan(&ref, &uo.Updater, &fp, &date); err != nil {
			return nil, fmt.Errorf("sqlite: scan error: %w", err)
		}
		uo.Ref, err = uuid.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("sqlite: malformed ref %q: %w", ref, err)
		}
		uo.Date, err = time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, fmt.Errorf("sqlite: malformed date %q: %w", date, err)
		}
		uo.Fingerprint = datastore.Fingerprint(fp)
		out = append(out, uo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: sql error: %w", err)
	}
	return out, nil
}

// GetLatestFingerprint implements datastore.Store.
func (s *Store) GetLatestFingerprint(ctx context.Context, updater string) (_ datastore.Fingerprint, err error) {
	defer timeQuery("getlatestfingerprint", &err)()
	var fp string
	err = s.db.QueryRowContext(ctx, latestFingerprint, updater).Scan(&fp)
	switch {
	case errors.Is(err, nil):
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	default:
		return "", fmt.Errorf("sqlite: query: %w", err)
	}
	return datastore.Fingerprint(fp), nil
}

// DeleteUpdateOperations implements datastore.Store.
func (s *Store) DeleteUpdateOperations(ctx context.Context, refs ...uuid.UUID) (_ int64, err error) {
	ctx = zlog.ContextWithValues(ctx, "component", "datastore/sqlite/Store.DeleteUpdateOperations")
	defer timeQuery("deleteupdateoperations", &err)()
	if len(refs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.String()
	}
	query, args, err := buildDeleteUpdateOperationsQuery(ids)
	if err != nil {
		return 0, fmt.Errorf("sqlite: build query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	zlog.Debug(ctx).Int64("count", n).Msg("deleted update operations")
	return n, nil
}

// GC implements datastore.Store.
func (s *Store) GC(ctx context.Context, keep int) (_ int64, err error) {
	ctx = zlog.ContextWithValues(ctx, "component", "datastore/sqlite/Store.GC")
	defer timeQuery("gc", &err)()
	if keep < 0 {
		return 0, fmt.Errorf("sqlite: negative retention: %d", keep)
	}
	res, err := s.db.ExecContext(ctx, expireOperations, keep)
	if err != nil {
		return 0, fmt.Errorf("sqlite: expire: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n != 0 {
		zlog.Debug(ctx).Int64("count", n).Msg("expired update operations")
	}
	return n, nil
}
