package tools

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidArgument is wrapped when a tool receives a missing or mistyped
// argument.
var ErrInvalidArgument = errors.New("invalid argument")

// stringArg extracts a required non-empty string argument.
func stringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%w: missing parameter '%s'", ErrInvalidArgument, name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: parameter '%s' must be a string, got %T", ErrInvalidArgument, name, raw)
	}
	if s == "" {
		return "", fmt.Errorf("%w: parameter '%s' is empty", ErrInvalidArgument, name)
	}
	return s, nil
}

// encode renders v as the JSON text handed back to the model.
func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}
