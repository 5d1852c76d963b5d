package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/uuidlens/internal/ident"
	"github.com/roach88/uuidlens/internal/querysql"
)

// Executor runs one compiled statement and returns its rows.
// *statement.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, stmt querysql.Statement) ([][]any, error)
}

// Resolver turns typed identifiers into qualified names.
//
// Thread-safety: a Resolver holds no per-call state and is safe for
// concurrent use if its Executor is.
type Resolver struct {
	exec        Executor
	compiler    *querysql.Compiler
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency runs up to n per-identifier statements (schemas and
// catalogs) at once. Values below 2 keep the default sequential behavior.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// New creates a Resolver that sends statements through exec.
func New(exec Executor, opts ...Option) *Resolver {
	r := &Resolver{
		exec:        exec,
		compiler:    querysql.NewCompiler(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up the qualified name of every identifier in ids.
//
// Identifiers with no matching row are absent from the result. Tokens that
// fail validation are dropped without a query. When some statements fail the
// names resolved by the others are still returned, alongside the joined
// errors.
func (r *Resolver) Resolve(ctx context.Context, ids []ident.TypedIdentifier) (map[string]ident.ResolvedName, error) {
	out := make(map[string]ident.ResolvedName)

	groups := partition(ids)
	if len(groups) == 0 {
		return out, nil
	}

	var errs []error
	if leaves := groups[ident.KindLeaf]; len(leaves) > 0 {
		if err := r.resolveLeaves(ctx, leaves, out); err != nil {
			slog.Warn("table lookup failed", "count", len(leaves), "error", err)
			errs = append(errs, fmt.Errorf("resolve %d tables: %w", len(leaves), err))
		}
	}
	for _, kind := range []ident.Kind{ident.KindBranch, ident.KindRoot} {
		if tokens := groups[kind]; len(tokens) > 0 {
			errs = append(errs, r.resolveEach(ctx, kind, tokens, out)...)
		}
	}

	slog.Debug("identifiers resolved",
		"requested", len(ids),
		"resolved", len(out),
		"failed", len(errs),
	)
	return out, errors.Join(errs...)
}

// partition validates ids and groups their tokens by kind, dropping
// duplicates and anything malformed.
func partition(ids []ident.TypedIdentifier) map[ident.Kind][]string {
	groups := make(map[ident.Kind][]string)
	seen := make(map[ident.TypedIdentifier]bool, len(ids))
	for _, id := range ids {
		token, err := ident.CanonicalToken(id.ID)
		if err != nil || !id.Kind.Valid() {
			slog.Debug("dropping invalid identifier", "id", id.ID, "kind", id.Kind)
			continue
		}
		key := ident.TypedIdentifier{ID: token, Kind: id.Kind}
		if seen[key] {
			continue
		}
		seen[key] = true
		groups[id.Kind] = append(groups[id.Kind], token)
	}
	return groups
}

// resolveLeaves resolves every table token with a single batched statement.
func (r *Resolver) resolveLeaves(ctx context.Context, tokens []string, out map[string]ident.ResolvedName) error {
	stmt, err := r.compiler.Compile(LeafQuery(tokens))
	if err != nil {
		return fmt.Errorf("compile table query: %w", err)
	}
	rows, err := r.exec.Execute(ctx, stmt)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		wanted[token] = true
	}

	names := make(map[string]ident.ResolvedName, len(rows))
	for i, row := range rows {
		cells, err := rowStrings(ident.KindLeaf, i, row, len(leafColumns))
		if err != nil {
			return err
		}
		token := trailingToken(cells[3])
		if !wanted[token] {
			slog.Debug("ignoring unrequested table row", "storage_sub_directory", cells[3])
			continue
		}
		name, err := qualifiedName(ident.KindLeaf, i, cells[0], cells[1], cells[2])
		if err != nil {
			return err
		}
		names[token] = name
	}

	// The group either maps completely or not at all.
	for token, name := range names {
		out[token] = name
	}
	return nil
}

type singleResult struct {
	name  ident.ResolvedName
	found bool
	err   error
}

// resolveEach runs one statement per token of kind. Failures are isolated
// to their token and returned in input order.
func (r *Resolver) resolveEach(ctx context.Context, kind ident.Kind, tokens []string, out map[string]ident.ResolvedName) []error {
	results := make([]singleResult, len(tokens))

	if r.concurrency <= 1 {
		for i, token := range tokens {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				continue
			}
			results[i] = r.resolveOne(ctx, kind, token)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.concurrency)
		for i, token := range tokens {
			i, token := i, token
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					results[i].err = err
					return nil
				}
				results[i] = r.resolveOne(ctx, kind, token)
				return nil
			})
		}
		_ = g.Wait()
	}

	var errs []error
	for i, res := range results {
		switch {
		case res.err != nil:
			slog.Warn("identifier lookup failed", "kind", kind, "id", tokens[i], "error", res.err)
			errs = append(errs, fmt.Errorf("resolve %s:%s: %w", kind, tokens[i], res.err))
		case res.found:
			out[tokens[i]] = res.name
		}
	}
	return errs
}

func (r *Resolver) resolveOne(ctx context.Context, kind ident.Kind, token string) singleResult {
	q := BranchQuery(token)
	if kind == ident.KindRoot {
		q = RootQuery(token)
	}
	stmt, err := r.compiler.Compile(q)
	if err != nil {
		return singleResult{err: fmt.Errorf("compile %s query: %w", kind, err)}
	}
	rows, err := r.exec.Execute(ctx, stmt)
	if err != nil {
		return singleResult{err: err}
	}
	if len(rows) == 0 {
		return singleResult{}
	}

	cells, err := rowStrings(kind, 0, rows[0], kind.Segments())
	if err != nil {
		return singleResult{err: err}
	}
	name, err := qualifiedName(kind, 0, cells...)
	if err != nil {
		return singleResult{err: err}
	}
	return singleResult{name: name, found: true}
}
