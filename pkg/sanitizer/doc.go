// Package sanitizer normalizes caller-supplied identifiers and free text
// before validation and storage.
//
// All functions are idempotent and never fail: invalid input normalizes to an
// empty string or is dropped from a slice, and the validator rejects it after.
package sanitizer
