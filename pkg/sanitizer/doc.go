// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input is cleaned, never rejected; rejection is the
// validator's job.
package sanitizer
