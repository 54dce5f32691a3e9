// Package ledger handles connections to the legacy MySQL member ledger.
//
// The ledger is one of the two authoritative remote sources the sync engine
// mirrors locally (the other being the REST catalog, see core/catalog). It
// holds the socios table and the per-member financial transactions.
//
// # Connection discipline
//
// The legacy server tolerates very few concurrent connections, so this package
// deliberately does not keep a pool. Open returns a fresh handle configured
// for a single connection with strict timeouts; callers pair every Open with a
// Close once the logical operation completes.
//
// # Usage
//
//	db, err := ledger.Open(cfg.Ledger)
//	if err != nil {
//	    return err
//	}
//	defer ledger.Close(db)
package ledger
