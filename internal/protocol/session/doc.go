// Package session owns the client side of one daemon connection.
//
// Ownership boundary:
// - dial with connect deadline
// - full-frame writes
// - timeout-terminated reads (the response side carries no length)
// - unopened -> open -> closed lifecycle
//
// A Session serves exactly one request/response exchange and is never
// pooled. The only cancellation primitive after dial is the per-read
// deadline.
package session
