package formatting

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"scoreboard/internal/intra"
)

// YAMLFormatter provides YAML output formatting. Keys follow the JSON
// field names.
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{options: options}
}

func (f *YAMLFormatter) Students(students []intra.Student, stats intra.Stats) error {
	return f.write(map[string]interface{}{"students": students, "stats": stats})
}

func (f *YAMLFormatter) Poolers(poolers []intra.Pooler, stats intra.Stats) error {
	return f.write(map[string]interface{}{"poolers": poolers, "stats": stats})
}

func (f *YAMLFormatter) Profile(me *intra.UserProfile) error {
	return f.write(me)
}

func (f *YAMLFormatter) Summary(sum *intra.Summary) error {
	return f.write(sum)
}

func (f *YAMLFormatter) TokenStatus(st TokenStatus) error {
	return f.write(st)
}

// write goes through JSON first so the intranet types, which only carry
// json tags, keep their wire names.
func (f *YAMLFormatter) write(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to format YAML: %w", err)
	}
	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to format YAML: %w", err)
	}
	enc := yaml.NewEncoder(f.options.Out)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to format YAML: %w", err)
	}
	return enc.Close()
}
