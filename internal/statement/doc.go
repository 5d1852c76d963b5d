// Package statement executes SQL statements against a remote
// statement-execution endpoint using its asynchronous submit/poll protocol.
//
// # Protocol
//
//	POST <host>/api/2.0/sql/statements          submit (bounded wait_timeout)
//	GET  <host>/api/2.0/sql/statements/<id>     poll until terminal
//	GET  <host><next_chunk_internal_link>       fetch further inline chunks
//	POST <host>/api/2.0/sql/statements/<id>/cancel
//
// Every request carries "Authorization: Bearer <token>". Results are asked
// for with INLINE disposition and JSON_ARRAY format, so rows arrive as
// positional arrays.
//
// # State machine
//
//	PENDING ─┐
//	RUNNING ─┴─ poll every PollInterval ─→ SUCCEEDED → rows
//	                                     ─→ FAILED | CANCELED | CLOSED → STATEMENT_FAILED
//
// # Limits
//
// The remote endpoint bounds its own execution time, but the client does
// not rely on that. Execute stops after MaxPolls polls or once Timeout has
// elapsed, whichever comes first, and reports TIMEOUT. The statement is then
// cancelled on a best-effort basis. Caller cancellation through the context
// is honoured at every wait.
package statement
