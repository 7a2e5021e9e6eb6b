package autocrud

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	lzstring "github.com/daku10/go-lz-string"
)

// QueryBlobParam carries an encoded parameter mapping.
const QueryBlobParam = "q"

// EncodeQueryBlob compresses params as JSON with the lz-string
// EncodedURIComponent alphabet, safe to place in a query string unescaped.
func EncodeQueryBlob(params map[string]string) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return lzstring.CompressToEncodedURIComponent(string(raw))
}

// DecodeQueryBlob reverses EncodeQueryBlob. Non string JSON values are
// flattened: numbers and booleans to their literal, arrays comma joined.
func DecodeQueryBlob(encoded string) (map[string]string, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, errors.New("empty query blob")
	}

	decompressed, err := lzstring.DecompressFromEncodedURIComponent(encoded)
	if err != nil {
		return nil, fmt.Errorf("decompress query blob: %w", err)
	}
	if decompressed == "" {
		return nil, errors.New("query blob decompressed to nothing")
	}

	var raw map[string]any
	decoder := json.NewDecoder(strings.NewReader(decompressed))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode query blob: %w", err)
	}

	params := make(map[string]string, len(raw))
	for k, v := range raw {
		params[k] = flattenJSON(v)
	}
	return params, nil
}

func flattenJSON(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = flattenJSON(item)
		}
		return strings.Join(parts, ",")
	}
	out, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(out)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
