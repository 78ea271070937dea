// Package database provides the SQLite store backing the descriptor
// cache and the command log.
//
// The connection runs in WAL mode with foreign keys on and a single
// pooled connection (SQLite has one writer). Schema changes are
// additive-only migrations embedded in the binary; each has an .up.sql
// and a .down.sql, and Migrate applies pending versions in order.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
