// Package validate checks decoded price responses against the
// {"data": {"amount", "base", "currency"}} envelope.
//
// Validation is structural only: fields must be present and be JSON
// strings. Values are copied as-is, nothing is trimmed or parsed.
// Unknown keys are ignored.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Alias1177/btcpipe/internal/apperr"
	"github.com/Alias1177/btcpipe/internal/model"
)

const opValidate = "validate envelope"

// Error lists every field that failed validation
type Error struct {
	Fields []model.FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("%d validation error(s): %s", len(e.Fields), strings.Join(parts, "; "))
}

var recordFields = []string{"amount", "base", "currency"}

// Envelope validates raw and returns the typed envelope. Any failing
// field means no envelope is returned.
func Envelope(raw model.RawResponse) (model.Envelope, error) {
	if raw == nil {
		return model.Envelope{}, fail(model.FieldError{Path: "data", Problem: "missing"})
	}

	value, ok := raw["data"]
	if !ok {
		return model.Envelope{}, fail(model.FieldError{Path: "data", Problem: "missing"})
	}

	data, ok := value.(map[string]any)
	if !ok {
		return model.Envelope{}, fail(model.FieldError{
			Path:    "data",
			Problem: "expected object, got " + typeName(value),
		})
	}

	values := make(map[string]string, len(recordFields))
	var problems []model.FieldError
	for _, name := range recordFields {
		path := "data." + name
		v, ok := data[name]
		if !ok {
			problems = append(problems, model.FieldError{Path: path, Problem: "missing"})
			continue
		}
		s, ok := v.(string)
		if !ok {
			problems = append(problems, model.FieldError{
				Path:    path,
				Problem: "expected string, got " + typeName(v),
			})
			continue
		}
		values[name] = s
	}

	if len(problems) > 0 {
		return model.Envelope{}, fail(problems...)
	}

	return model.Envelope{
		Data: model.PriceRecord{
			Amount:   values["amount"],
			Base:     values["base"],
			Currency: values["currency"],
		},
	}, nil
}

// Document checks that a decoded JSON body is an object and returns it
// as a RawResponse. Arrays, scalars and null fail under the "body" path.
func Document(v any) (model.RawResponse, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fail(model.FieldError{Path: "body", Problem: "expected object, got " + typeName(v)})
	}
	return model.RawResponse(obj), nil
}

// Fields extracts the field errors from err, if any
func Fields(err error) []model.FieldError {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

func fail(fields ...model.FieldError) error {
	return apperr.Validation(opValidate, &Error{Fields: fields})
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
