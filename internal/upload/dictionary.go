package upload

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/civicworks/parcel-cli/internal/table"
)

// DictFormat selects the sidecar encoding.
type DictFormat string

const (
	DictJSON DictFormat = "json"
	DictYAML DictFormat = "yaml"
)

// Dictionary describes an uploaded dataset: its columns, inferred per-column
// types, and row count. Uploaded next to the CSV so consumers can validate
// the file without parsing it.
type Dictionary struct {
	Columns     []string          `json:"columns" yaml:"columns"`
	Types       map[string]string `json:"dtypes" yaml:"dtypes"`
	RecordCount int               `json:"record_count" yaml:"record_count"`
	Timestamp   string            `json:"timestamp" yaml:"timestamp"`
}

// BuildDictionary inspects the frame and infers a type per column.
func BuildDictionary(f *table.Frame, timestamp string) Dictionary {
	columns := f.Columns()
	types := make(map[string]string, len(columns))
	for _, name := range columns {
		types[name] = inferType(f.Column(name))
	}
	return Dictionary{
		Columns:     columns,
		Types:       types,
		RecordCount: f.Len(),
		Timestamp:   timestamp,
	}
}

// Encode renders the dictionary in the requested format.
func (d Dictionary) Encode(format DictFormat) ([]byte, string, error) {
	switch format {
	case DictYAML:
		body, err := yaml.Marshal(d)
		if err != nil {
			return nil, "", eris.Wrap(err, "upload: marshal dictionary yaml")
		}
		return body, "_dictionary.yaml", nil
	case DictJSON, "":
		body, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, "", eris.Wrap(err, "upload: marshal dictionary json")
		}
		return body, "_dictionary.json", nil
	default:
		return nil, "", eris.Errorf("upload: unknown dictionary format %q", format)
	}
}

// inferType reports "float64" when every non-empty cell is numeric, "object"
// otherwise. Empty columns default to "object".
func inferType(col []any) string {
	numeric := false
	for _, v := range col {
		switch x := v.(type) {
		case nil:
			continue
		case float64, float32, int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64, json.Number:
			numeric = true
		case string:
			s := strings.TrimSpace(x)
			if s == "" {
				continue
			}
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return "object"
			}
			numeric = true
		default:
			return "object"
		}
	}
	if numeric {
		return "float64"
	}
	return "object"
}
