package model

import (
	"fmt"
	"time"
)

// RawResponse is a decoded response body before validation
type RawResponse map[string]any

// PriceRecord is a validated spot price. Amount stays a decimal string.
type PriceRecord struct {
	Amount   string `json:"amount"`
	Base     string `json:"base"`
	Currency string `json:"currency"`
}

// Envelope wraps exactly one PriceRecord under "data"
type Envelope struct {
	Data PriceRecord `json:"data"`
}

// Map returns the envelope in its {"data": {...}} form
func (e Envelope) Map() map[string]any {
	return map[string]any{
		"data": map[string]any{
			"amount":   e.Data.Amount,
			"base":     e.Data.Base,
			"currency": e.Data.Currency,
		},
	}
}

// StoredRow is a PriceRecord persisted in bitcoin_data
type StoredRow struct {
	ID int64 `json:"id"`
	PriceRecord
	Timestamp time.Time `json:"timestamp"`
}

func (r StoredRow) String() string {
	return fmt.Sprintf("ID: %d, Amount: %s, Base: %s, Currency: %s, Timestamp: %s",
		r.ID, r.Amount, r.Base, r.Currency, r.Timestamp.Format(time.RFC3339))
}

// FieldError describes one field that failed validation
type FieldError struct {
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

func (f FieldError) String() string {
	return f.Path + ": " + f.Problem
}
