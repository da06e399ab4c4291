package formatting

import (
	"encoding/json"

	"scoreboard/internal/intra"
)

// JSONFormatter writes the same bodies the dashboard API returns.
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{options: options}
}

func (f *JSONFormatter) Students(students []intra.Student, stats intra.Stats) error {
	if students == nil {
		students = []intra.Student{}
	}
	return f.write(struct {
		Students []intra.Student `json:"students"`
		Stats    intra.Stats     `json:"stats"`
	}{students, stats})
}

func (f *JSONFormatter) Poolers(poolers []intra.Pooler, stats intra.Stats) error {
	if poolers == nil {
		poolers = []intra.Pooler{}
	}
	return f.write(struct {
		Poolers []intra.Pooler `json:"poolers"`
		Stats   intra.Stats    `json:"stats"`
	}{poolers, stats})
}

func (f *JSONFormatter) Profile(me *intra.UserProfile) error {
	return f.write(me)
}

func (f *JSONFormatter) Summary(sum *intra.Summary) error {
	return f.write(sum)
}

func (f *JSONFormatter) TokenStatus(st TokenStatus) error {
	return f.write(st)
}

func (f *JSONFormatter) write(v interface{}) error {
	enc := json.NewEncoder(f.options.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
