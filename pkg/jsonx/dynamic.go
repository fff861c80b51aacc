package jsonx

import "github.com/goccy/go-json"

// ToDynamicJSON round-trips val through JSON into a map[string]any.
// It is used to hand reflected schemas to SDKs that want loose maps.
func ToDynamicJSON(val any) (map[string]any, error) {
	result := make(map[string]any)
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
