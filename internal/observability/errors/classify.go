package errors

import (
	goerrors "errors"
	"reflect"
	"strings"
)

// Classified is implemented by errors that carry their own metric class.
type Classified interface {
	ErrorClass() string
}

// Classify returns a normalized error class suitable for tagging metrics/logs.
// Errors implementing Classified anywhere in their chain win; otherwise the
// innermost concrete type name is converted to snake_case-ish.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var classified Classified
	if goerrors.As(err, &classified) {
		if class := strings.TrimSpace(classified.ErrorClass()); class != "" {
			return class
		}
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
