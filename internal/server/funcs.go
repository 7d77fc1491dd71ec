package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"json_encode": jsonEncode,
		"dict_get":    dictGet,
	}
}

// jsonEncode marshals v for embedding in a script block. Non-ASCII text is
// kept as is; <, > and & are escaped by encoding/json.
func jsonEncode(v any) (template.JS, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("json_encode: %w", err)
	}
	return template.JS(data), nil //nolint:gosec // G203: output of json.Marshal
}

// dictGet looks key up in a map, or in a JSON object given as a string.
// Single-quoted JSON is accepted. Anything missing yields "".
func dictGet(dict any, key any) any {
	k := fmt.Sprint(key)

	switch d := dict.(type) {
	case map[string]any:
		if v, ok := d[k]; ok {
			return v
		}
	case map[string]string:
		if v, ok := d[k]; ok {
			return v
		}
	case string:
		if d == "" {
			return ""
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(strings.ReplaceAll(d, "'", `"`)), &decoded); err != nil {
			return ""
		}
		if v, ok := decoded[k]; ok {
			return v
		}
	}
	return ""
}
