// Package models defines the mirrored entity types and the Account record.
//
// Catalog entities (Customer, Order, Event, AvailablePayment) carry both json
// tags matching the REST payloads and gorm tags for the local mirror, so one
// struct serves decoding and persistence. Ledger entities (Socio,
// LedgerTransaction) use the legacy Spanish column names on both sides.
//
// Every mirrored type implements the Entity interface — a stable int64 id —
// which is all the generic reconciler needs.
package models
