// Package types provides core type definitions shared across the waybill runtime.
package types

import "github.com/goccy/go-json"

// ContextVars is a key-value store of variables used for instruction template
// rendering. Tool functions may also declare a ContextVars parameter to
// receive the current set at call time.
//
// ContextVars is a plain map and is not safe for concurrent modification.
type ContextVars map[string]any

// String returns the JSON representation of the variables, or "" when
// marshaling fails.
func (cv ContextVars) String() string {
	jsonData, err := json.Marshal(cv)
	if err != nil {
		return ""
	}
	return string(jsonData)
}
