// Package testdb provides database helpers for integration tests.
//
// Each test runs inside a transaction that is rolled back when the test
// function returns, so tests can share one migrated database without
// cleanup:
//
//	db := testdb.GetTestDBWithT(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	    resources := postgres.NewPostgresResourceStore(tx, logger)
//	    ...
//	})
//
// Tests are skipped when no database URL is configured.
package testdb
