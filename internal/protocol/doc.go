// Package protocol is the STS daemon client.
//
// Ownership boundary:
// - name -> opcode resolution (command)
// - request framing (frame)
// - one socket per exchange (session)
// - the Execute composition over all three
//
// Contract: Execute returns the raw response bytes. Parameterized commands
// are fire-and-forget and never read a reply; parameterless commands always
// read until the socket goes quiet. Parsing payloads into numbers belongs to
// callers (see internal/spectrum).
package protocol
