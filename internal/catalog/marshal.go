package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/polyindex/internal/snapshot"
)

// indexColumns is the JSON stored in indexes.columns.
type indexColumns struct {
	Keys     []string `json:"keys"`
	Included []string `json:"included"`
	Values   []string `json:"values"`
}

func marshalColumns(ix snapshot.Index) (string, error) {
	return marshalJSON(indexColumns{
		Keys:     nonNil(ix.Keys),
		Included: nonNil(ix.Included),
		Values:   nonNil(ix.Values),
	})
}

func unmarshalColumns(data string) (indexColumns, error) {
	var cols indexColumns
	if err := json.Unmarshal([]byte(data), &cols); err != nil {
		return cols, fmt.Errorf("unmarshal columns: %w", err)
	}
	return cols, nil
}

func marshalNames(names []string) (string, error) {
	return marshalJSON(nonNil(names))
}

func unmarshalNames(data string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal names: %w", err)
	}
	return names, nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(data), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
