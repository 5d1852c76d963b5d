package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/uuidlens/internal/ident"
)

// NewAnnotateCommand creates the annotate command.
func NewAnnotateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate [file]",
		Short: "Annotate storage paths with qualified names",
		Long: `Scan text for storage paths and write it back with " [name]" after
every identifier that resolves. Reads stdin when no file is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runAnnotate(rootOpts, path, cmd)
		},
	}

	return cmd
}

// AnnotateOutput is the result of the annotate command.
type AnnotateOutput struct {
	RequestID string `json:"request_id,omitempty"`
	Found     int    `json:"found"`
	Resolved  int    `json:"resolved"`
	Text      string `json:"text"`
}

// String returns the annotated text; the formatter supplies the final newline.
func (o AnnotateOutput) String() string {
	return strings.TrimSuffix(o.Text, "\n")
}

func runAnnotate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	text, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeInputFailed, "failed to read input", err)
	}

	ids := ident.Scan(text)
	formatter.VerboseLog("Found %d identifier(s) in %s", len(ids), path)
	if len(ids) == 0 {
		return formatter.Success(AnnotateOutput{Text: text})
	}

	e, err := openEnv(opts)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to open store", err)
	}
	defer e.Close()

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	res := e.service(opts).Lookup(ctx, ids)
	out := AnnotateOutput{
		RequestID: res.RequestID,
		Found:     len(ids),
		Resolved:  len(res.Matches),
		Text:      ident.Annotate(text, res.Matches),
	}

	if res.Err != nil {
		_ = formatter.Partial(res.RequestID, out, lookupErrorCode(res.Err), res.Err.Error())
		return WrapExitError(ExitFailure, "lookup failed", res.Err)
	}
	return formatter.Success(out)
}
