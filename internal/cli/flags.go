package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"scoreboard/internal/formatting"
)

// OutputFlags holds the flag values shared by commands that print
// intranet data.
type OutputFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
}

// RegisterOutputFlags registers --output/-o, --no-headers and --quiet/-q.
func RegisterOutputFlags(cmd *cobra.Command, flags *OutputFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
}

// Formatter builds the formatter the flags ask for. Colors are used only
// when stdout is a terminal.
func (f *OutputFlags) Formatter(cmd *cobra.Command) (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(f.OutputFormat)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	color := false
	if file, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(file.Fd())
	}
	return formatting.New(formatting.Options{
		Format:    format,
		NoHeaders: f.NoHeaders,
		Color:     color,
		Out:       out,
	}), nil
}
