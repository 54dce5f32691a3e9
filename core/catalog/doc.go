// Package catalog provides the client for the WooCommerce-style REST catalog.
//
// The catalog is one of the two authoritative remote sources mirrored locally
// (the other being the legacy SQL ledger, see core/ledger). It serves
// customers, orders, events (products) and available payment packages.
//
// # Client
//
// The Client interface exposes exactly what the sync engine consumes: a
// paginated List, a Post and a Delete. Items come back as raw JSON; decoding
// into entity types happens in the feature layer, which owns the shapes.
//
// Authentication uses a static consumer key/secret pair attached to every
// request. The underlying transport carries strict connect/read timeouts so a
// stalled remote surfaces as a retryable failure instead of a hung run.
//
// # Mocks
//
// The mocks subpackage contains a testify mock of Client for feature tests.
package catalog
