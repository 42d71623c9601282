package validate

import (
	"testing"

	"github.com/Alias1177/btcpipe/internal/apperr"
	"github.com/Alias1177/btcpipe/internal/model"
)

func TestEnvelopeValid(t *testing.T) {
	raw := model.RawResponse{
		"data": map[string]any{
			"amount":   "97054.355",
			"base":     "BTC",
			"currency": "USD",
		},
	}

	env, err := Envelope(raw)
	if err != nil {
		t.Fatalf("Envelope() error = %v", err)
	}

	want := model.PriceRecord{Amount: "97054.355", Base: "BTC", Currency: "USD"}
	if env.Data != want {
		t.Errorf("Envelope() = %+v, want %+v", env.Data, want)
	}
}

func TestEnvelopeKeepsValuesVerbatim(t *testing.T) {
	raw := model.RawResponse{
		"data": map[string]any{
			"amount":   " -0001.50 ",
			"base":     "",
			"currency": "usd",
			"extra":    42.0,
		},
		"warnings": []any{"ignored"},
	}

	env, err := Envelope(raw)
	if err != nil {
		t.Fatalf("Envelope() error = %v", err)
	}
	if env.Data.Amount != " -0001.50 " || env.Data.Base != "" || env.Data.Currency != "usd" {
		t.Errorf("values were transformed: %+v", env.Data)
	}
}

func TestEnvelopeInvalid(t *testing.T) {
	tests := []struct {
		name  string
		raw   model.RawResponse
		paths []string
	}{
		{
			name: "amount missing",
			raw: model.RawResponse{"data": map[string]any{
				"base":     "BTC",
				"currency": "USD",
			}},
			paths: []string{"data.amount"},
		},
		{
			name: "amount is a number",
			raw: model.RawResponse{"data": map[string]any{
				"amount":   97054.355,
				"base":     "BTC",
				"currency": "USD",
			}},
			paths: []string{"data.amount"},
		},
		{
			name: "base null and currency missing",
			raw: model.RawResponse{"data": map[string]any{
				"amount": "1",
				"base":   nil,
			}},
			paths: []string{"data.base", "data.currency"},
		},
		{
			name:  "data missing",
			raw:   model.RawResponse{"errors": []any{}},
			paths: []string{"data"},
		},
		{
			name:  "data is a string",
			raw:   model.RawResponse{"data": "BTC"},
			paths: []string{"data"},
		},
		{
			name:  "nil response",
			raw:   nil,
			paths: []string{"data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Envelope(tt.raw)
			if err == nil {
				t.Fatalf("Envelope() expected error, got %+v", env)
			}
			if env != (model.Envelope{}) {
				t.Errorf("Envelope() returned partial record %+v", env)
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("error kind = %v, want validation", apperr.KindOf(err))
			}

			fields := Fields(err)
			if len(fields) != len(tt.paths) {
				t.Fatalf("got %d field errors (%v), want %d", len(fields), fields, len(tt.paths))
			}
			for i, p := range tt.paths {
				if fields[i].Path != p {
					t.Errorf("field[%d].Path = %q, want %q", i, fields[i].Path, p)
				}
			}
		})
	}
}

func TestDocument(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		problem string
	}{
		{"object", map[string]any{"data": map[string]any{}}, ""},
		{"array", []any{1.0, 2.0}, "expected object, got array"},
		{"string", "BTC", "expected object, got string"},
		{"null", nil, "expected object, got null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Document(tt.value)
			if tt.problem == "" {
				if err != nil || raw == nil {
					t.Fatalf("Document() = %v, %v", raw, err)
				}
				return
			}
			if raw != nil {
				t.Errorf("Document() returned %v for non-object", raw)
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("error kind = %v, want validation", apperr.KindOf(err))
			}
			fields := Fields(err)
			if len(fields) != 1 || fields[0].Path != "body" || fields[0].Problem != tt.problem {
				t.Errorf("fields = %v", fields)
			}
		})
	}
}
