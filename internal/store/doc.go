// Package store provides the key-value persistence behind the resolution
// cache and the settings.
//
// Two backends implement KV:
//   - Store: a local SQLite file (the default)
//   - RedisStore: a Redis server, for sharing one cache between machines
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - single open connection: SQLite allows one writer at a time
//
// Values are stored as opaque bytes. A missing key is reported through the
// ok result of Get, never as an error.
package store
