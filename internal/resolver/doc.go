// Package resolver maps typed identifiers onto qualified names by querying
// the information schema through a remote statement executor.
//
// Identifiers are grouped by kind:
//
//   - KindLeaf: one batched IN query over storage_sub_directory
//   - KindBranch: one LIKE query per identifier over storage_path
//   - KindRoot: one LIKE query per identifier over storage_path
//
// Tokens only ever travel as statement parameters. A failure in one group
// (or, for the per-identifier kinds, one identifier) does not discard the
// names resolved elsewhere; Resolve returns the partial map together with
// the joined errors.
package resolver
