package builder

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValuesFromJSON normalises a decoded browser payload. Booleans become
// "true" or "", numbers keep their literal text, null drops the key.
// Arrays and objects are rejected.
func ValuesFromJSON(in map[string]any) (Values, error) {
	out := make(Values, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out[k] = t
		case bool:
			if t {
				out[k] = "true"
			} else {
				out[k] = ""
			}
		case json.Number:
			out[k] = t.String()
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("option %q: want a string, number or boolean, got %T", k, v)
		}
	}
	return out, nil
}
