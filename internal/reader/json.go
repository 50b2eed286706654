package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"itvetl/internal/records"
)

// DecodeJSON reads a top-level array of objects, a single object, or a
// stream of objects (NDJSON). Numbers are kept as json.Number so postal codes
// published as integers keep their digits.
func DecodeJSON(r io.Reader) ([]records.Record, error) {
	d := json.NewDecoder(r)
	d.UseNumber()

	var out []records.Record
	for {
		var root any
		if err := d.Decode(&root); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("json reader: decode: %w", err)
		}

		switch v := root.(type) {
		case map[string]any:
			out = append(out, records.Record(v))
		case []any:
			for i, elem := range v {
				obj, ok := elem.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("json reader: element %d in array is not an object", i)
				}
				out = append(out, records.Record(obj))
			}
		default:
			return nil, fmt.Errorf("json reader: unsupported top-level JSON type %T", v)
		}
	}
}
