package sqlite

import (
	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/sqlite3"
)

// buildGetVectorsQuery creates a query returning the rows for the named
// CVEs out of each updater's latest update operation.
func buildGetVectorsQuery(cves []string) (string, []interface{}, error) {
	lite := goqu.Dialect("sqlite3")
	latest := lite.Select(goqu.MAX("id")).
		From("update_operation").
		GroupBy("updater")
	query := lite.Select(
		"v.cve",
		"v.version",
		"v.vector",
		"v.base_score",
	).From(goqu.T("vector").As("v")).
		Join(
			goqu.T("update_operation").As("uo"),
			goqu.On(goqu.Ex{"uo.id": goqu.I("v.uo_id")}),
		).
		Where(
			goqu.I("v.cve").In(cves),
			goqu.I("uo.id").In(latest),
		).
		Order(goqu.I("v.cve").Asc(), goqu.I("v.version").Asc()).
		Prepared(true)
	return query.ToSQL()
}

// buildGetUpdateOperationsQuery creates a query returning update operations
// newest first, optionally filtered by updater name.
func buildGetUpdateOperationsQuery(updaters []string) (string, []interface{}, error) {
	lite := goqu.Dialect("sqlite3")
	query := lite.Select(
		"ref",
		"updater",
		"fingerprint",
		"date",
	).From("update_operation").
		Order(goqu.I("id").Desc()).
		Prepared(true)
	if len(updaters) != 0 {
		query = query.Where(goqu.I("updater").In(updaters))
	}
	return query.ToSQL()
}

// buildDeleteUpdateOperationsQuery creates a statement removing the update
// operations with the named refs. Vector rows go with them, via the foreign
// key cascade.
func buildDeleteUpdateOperationsQuery(refs []string) (string, []interface{}, error) {
	lite := goqu.Dialect("sqlite3")
	query := lite.Delete("update_operation").
		Where(goqu.I("ref").In(refs)).
		Prepared(true)
	return query.ToSQL()
}
