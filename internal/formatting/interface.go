// Package formatting renders intranet listings for the terminal.
//
// Every command that prints data goes through a Formatter so the same
// result can be shown as a table for people or as JSON or YAML for scripts.
package formatting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"scoreboard/internal/intra"
	"scoreboard/internal/oauth"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat accepts table, json or yaml, case-insensitively. Empty means
// table.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q (want table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format    OutputFormat
	NoHeaders bool // Suppress the header row in tables
	Color     bool // Enable colored output
	Out       io.Writer
}

// TokenStatus is what `auth status` reports.
type TokenStatus struct {
	Authenticated bool               `json:"isAuthenticated"`
	Token         *oauth.TokenInfo   `json:"token,omitempty"`
	Storage       string             `json:"storage"`
	RefreshMode   string             `json:"refresh"`
	Me            *intra.UserProfile `json:"me,omitempty"`
}

// Formatter renders results in one output format.
type Formatter interface {
	Students(students []intra.Student, stats intra.Stats) error
	Poolers(poolers []intra.Pooler, stats intra.Stats) error
	Profile(me *intra.UserProfile) error
	Summary(sum *intra.Summary) error
	TokenStatus(st TokenStatus) error
}

// New creates the formatter for options.Format. Output goes to stdout
// unless options.Out is set.
func New(options Options) Formatter {
	if options.Out == nil {
		options.Out = os.Stdout
	}
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}
