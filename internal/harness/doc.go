// Package harness runs lookup scenarios end to end against a scripted
// statement endpoint.
//
// A scenario seeds the resolution cache, scripts the remote endpoint, runs a
// sequence of lookups through the real coordinator, resolver, executor and
// SQLite cache, then checks expectations and assertions.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: partial_failure
//	description: "A failed table statement keeps the cached catalog"
//	seed:
//	  - id: 16fd2706-8baf-433b-82eb-8c7fada847da
//	    type: catalog
//	    name: main
//	    age: 1h
//	scripts:
//	  - match: tables/0f8fad5b-d9cb-469f-a165-70867728950e
//	    steps:
//	      - state: RUNNING
//	      - state: FAILED
//	        error: x
//	lookups:
//	  - request: [table:0f8fad5b-..., catalog:16fd2706-...]
//	    advance: 0s
//	    expect:
//	      matches: { 16fd2706-8baf-433b-82eb-8c7fada847da: main }
//	      error: x
//	      statements: 1
//	assertions:
//	  - type: cache_absent
//	    id: 0f8fad5b-d9cb-469f-a165-70867728950e
//
// # Assertion Types
//
//   - cache_contains: the persisted record holds id with name
//   - cache_absent: the persisted record does not hold id
//   - cache_count: the persisted record holds exactly count entries
//   - statement_count: exactly count statements were submitted
//   - tokens_parameterized: no submitted statement text contains a token
//
// # Deterministic Testing
//
// The clock starts at testutil.DefaultFakeTime and only moves by each
// lookup's advance. Request ids are lookup-1, lookup-2, ... and statement
// ids are stmt-1, stmt-2, ... so traces can be compared with golden files.
package harness
