package expr

import (
	"encoding/json"
	"fmt"
)

// toJSONString renders any remaining composite value (maps, slices) as
// compact JSON for display purposes. Marshal failures (unsupported types
// such as channels) fall back to fmt's default formatting via %v semantics,
// which never happens for JSON-decoded values in practice.
func toJSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// parseJSON decodes raw JSON text into a generic any value, backing the
// scripted evaluator's json.parse utility callable.
func parseJSON(s string) (any, error) {
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
