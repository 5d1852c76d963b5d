// Package ident defines the typed storage identifiers resolved by uuidlens.
//
// A storage path such as
//
//	s3://bucket/metastore/__unitystorage/catalogs/<uuid>/schemas/<uuid>/tables/<uuid>
//
// embeds up to three identifiers. Each one is classified by the path marker
// that precedes it:
//
//   - catalogs/<uuid> → KindRoot   (top-level container)
//   - schemas/<uuid>  → KindBranch (mid-level container)
//   - tables/<uuid>   → KindLeaf   (terminal resource)
//
// Tokens are canonical 36-character hyphenated hex strings. Case is ignored on
// input and every token is stored lower-cased. Anything else is rejected with
// a ValidationError before it can reach a query.
package ident
