package query

import (
	"encoding/json"
	"strings"
)

// Key builds the cache key of a call: name, a colon, then the JSON of params.
// Struct fields keep declaration order and map keys are sorted, so equal
// params always produce the same key.
func Key(name string, params any) string {
	if params == nil {
		return name + ":{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return name + ":" + err.Error()
	}
	return name + ":" + string(data)
}

func nameOf(key string) string {
	name, _, _ := strings.Cut(key, ":")
	return name
}
