package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/uuidlens/internal/ident"
	"github.com/roach88/uuidlens/internal/lookup"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	Scan string
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup [kind:uuid ...]",
		Short: "Resolve identifiers to qualified names",
		Long: `Resolve identifiers to qualified names.

Identifiers are given as kind:uuid where kind is catalog, schema or table
(root, branch and leaf are accepted too). With --scan, identifiers are
extracted from the catalogs/, schemas/ and tables/ segments of storage paths
in a file, or stdin when the file is "-".

Cached names are served without contacting the endpoint.

Example:
  uuidlens lookup table:0f8fad5b-d9cb-469f-a165-70867728950e
  aws s3 ls --recursive s3://bucket/__unitystorage/ | uuidlens lookup --scan -`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scan, "scan", "", `scan a file ("-" for stdin) for storage paths`)

	return cmd
}

// Match is one resolved identifier in command output.
type Match struct {
	ID   string     `json:"id"`
	Kind ident.Kind `json:"type"`
	Name string     `json:"name"`
}

// LookupOutput is the result of the lookup command.
type LookupOutput struct {
	RequestID  string   `json:"request_id"`
	Matches    []Match  `json:"matches"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// String renders one "kind:uuid<TAB>name" line per identifier, with "-"
// for identifiers that did not resolve.
func (o LookupOutput) String() string {
	var b strings.Builder
	for _, m := range o.Matches {
		fmt.Fprintf(&b, "%s:%s\t%s\n", m.Kind, m.ID, m.Name)
	}
	for _, u := range o.Unresolved {
		fmt.Fprintf(&b, "%s\t-\n", u)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func runLookup(opts *LookupOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ids, err := collectIdentifiers(args, opts.Scan, cmd.InOrStdin())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadArgument, "invalid input", err)
	}
	if len(ids) == 0 {
		return fail(formatter, ExitCommandError, ErrCodeBadArgument, "no identifiers given", nil)
	}
	formatter.VerboseLog("Looking up %d identifier(s)", len(ids))

	e, err := openEnv(opts.RootOptions)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to open store", err)
	}
	defer e.Close()

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	res := e.service(opts.RootOptions).Lookup(ctx, ids)
	out := newLookupOutput(ids, res)

	if res.Err != nil {
		_ = formatter.Partial(res.RequestID, out, lookupErrorCode(res.Err), res.Err.Error())
		return WrapExitError(ExitFailure, "lookup failed", res.Err)
	}
	return formatter.Success(out)
}

// collectIdentifiers parses kind:uuid arguments and, when scan is set, the
// identifiers found in that file.
func collectIdentifiers(args []string, scan string, stdin io.Reader) ([]ident.TypedIdentifier, error) {
	var ids []ident.TypedIdentifier
	for _, arg := range args {
		id, err := ident.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	if scan != "" {
		text, err := readInput(scan, stdin)
		if err != nil {
			return nil, err
		}
		ids = append(ids, ident.Scan(text)...)
	}
	return ident.Dedupe(ids), nil
}

// readInput reads path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// newLookupOutput orders matches by request order.
func newLookupOutput(ids []ident.TypedIdentifier, res lookup.Result) LookupOutput {
	out := LookupOutput{RequestID: res.RequestID, Matches: []Match{}}
	for _, id := range ids {
		name, ok := res.Matches[id.ID]
		if !ok {
			out.Unresolved = append(out.Unresolved, id.String())
			continue
		}
		out.Matches = append(out.Matches, Match{ID: id.ID, Kind: name.Kind, Name: name.Name})
	}
	return out
}
