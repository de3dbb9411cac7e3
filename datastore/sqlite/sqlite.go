// Package sqlite implements the datastore interface on an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"

	"github.com/remind101/migrate"
	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/quay/cvssinfo/datastore"
	"github.com/quay/cvssinfo/datastore/sqlite/migrations"
)

var _ datastore.Store = (*Store)(nil)

// Store implements datastore.Store on a single SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens the named SQLite database, creating the file and running any
// pending migrations as needed.
//
// The returned Store must have its Close method called, or the process may
// panic.
func Open(ctx context.Context, name string) (*Store, error) {
	u := url.URL{
		Scheme: `file`,
		Opaque: name,
		RawQuery: url.Values{
			"_pragma": {
				"foreign_keys(1)",
				"busy_timeout(5000)",
				"journal_mode(WAL)",
			},
		}.Encode(),
	}
	db, err := sql.Open(`sqlite`, u.String())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	migrator := migrate.NewMigrator(db)
	migrator.Table = migrations.MigrationTable
	if err := migrator.Exec(migrate.Up, migrations.Migrations...); err != nil {
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	s := Store{db: db}
	_, file, line, _ := runtime.Caller(1)
	runtime.SetFinalizer(&s, func(s *Store) {
		panic(fmt.Sprintf("%s:%d: sqlite store not closed", file, line))
	})
	return &s, nil
}

// Close releases held resources.
//
// This must be called when the Store is no longer needed, or the process
// may panic.
func (s *Store) Close() error {
	runtime.SetFinalizer(s, nil)
	return s.db.Close()
}
