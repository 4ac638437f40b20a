// Package storage keeps a best-effort audit log of delivery attempts.
//
// Entries are written after the fact and are never replayed; losing the
// store loses history only.
package storage
