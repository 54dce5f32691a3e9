// Package localdb opens the local SQLite database that mirrors the remote
// catalog and ledger data.
//
// The mirror is the only durable state the application owns. It is populated
// and pruned exclusively by the sync engine (feature/sync); everything else
// reads from it.
//
// # Connect
//
// Connect opens the database file with GORM error translation enabled, which
// is what lets the reconciler distinguish a primary-key conflict (expected,
// recovered by updating in place) from a real failure.
//
// # Usage
//
//	db, err := localdb.Connect(cfg.LocalDB)
//	if err != nil {
//	    log.Fatal("Local database open failed", err)
//	}
package localdb
