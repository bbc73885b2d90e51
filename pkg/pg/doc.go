// Package pg bootstraps the PostgreSQL connection pool used by the
// two-factor record store.
//
// Config is populated from PG_* environment variables. Connect opens a
// pgxpool.Pool and pings it, retrying with a linear back-off that respects
// context cancellation. Migrate applies goose migrations from any fs.FS, so
// the schema can ship embedded in the binary. Healthcheck returns a probe
// closure for readiness endpoints.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
//		return err
//	}
//
// Error helpers such as IsSerializationFailure classify *pgconn.PgError values
// so callers can decide whether a transaction is worth retrying.
package pg
