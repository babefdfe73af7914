package tool

import (
	"encoding/json"
	"math"
)

// stringArg reads a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", invalidInput("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidInput("argument %q must be a string", key)
	}
	return s, nil
}

// stringArgDefault reads an optional string argument.
func stringArgDefault(args map[string]any, key, def string) (string, error) {
	if _, ok := args[key]; !ok {
		return def, nil
	}
	return stringArg(args, key)
}

// intArg reads an integer argument. JSON-decoded bodies deliver numbers as
// float64, so both forms are accepted.
func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, invalidInput("missing required argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, invalidInput("argument %q must be an integer", key)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, invalidInput("argument %q must be an integer", key)
		}
		return int(i), nil
	default:
		return 0, invalidInput("argument %q must be an integer", key)
	}
}

// intArgDefault reads an optional integer argument.
func intArgDefault(args map[string]any, key string, def int) (int, error) {
	if _, ok := args[key]; !ok {
		return def, nil
	}
	return intArg(args, key)
}
