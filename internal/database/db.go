package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/lib/pq"

	"github.com/Alias1177/btcpipe/internal/apperr"
	"github.com/Alias1177/btcpipe/internal/model"
)

// TableName is the table price observations are stored in
const TableName = "bitcoin_data"

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS ` + TableName + ` (
			id SERIAL PRIMARY KEY,
			amount TEXT NOT NULL,
			base TEXT NOT NULL,
			currency TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'utc')
		)`

	insertSQL = `
		INSERT INTO ` + TableName + ` (amount, base, currency)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp`

	listSQL = `
		SELECT id, amount, base, currency, timestamp
		FROM ` + TableName
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters.
// URL, when set, is used as-is.
type ConnectionParams struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnString builds a PostgreSQL connection URL
func (p ConnectionParams) ConnString() string {
	if p.URL != "" {
		return p.URL
	}

	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	host := p.Host
	if p.Port != "" {
		host += ":" + p.Port
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     host,
		Path:     "/" + p.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// New opens a database handle and checks the connection
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.ConnString())
	if err != nil {
		return nil, apperr.Persistence("open database", err)
	}

	// Check connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperr.Persistence("ping database", err)
	}

	return &DB{db}, nil
}

// EnsureSchema creates the price table if it doesn't exist. Safe to call
// on every start.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return apperr.Persistence("create table", err)
	}
	return nil
}

// Insert appends one observation; id and timestamp are assigned by the database
func (db *DB) Insert(ctx context.Context, rec model.PriceRecord) (model.StoredRow, error) {
	row := model.StoredRow{PriceRecord: rec}

	err := db.QueryRowContext(ctx, insertSQL, rec.Amount, rec.Base, rec.Currency).Scan(&row.ID, &row.Timestamp)
	if err != nil {
		return model.StoredRow{}, apperr.Persistence("insert price", err)
	}

	return row, nil
}

// ListAll returns every stored row. Order is unspecified.
func (db *DB) ListAll(ctx context.Context) ([]model.StoredRow, error) {
	rows, err := db.QueryContext(ctx, listSQL)
	if err != nil {
		return nil, apperr.Persistence("list prices", err)
	}
	defer rows.Close()

	var result []model.StoredRow
	for rows.Next() {
		var r model.StoredRow
		if err := rows.Scan(&r.ID, &r.Amount, &r.Base, &r.Currency, &r.Timestamp); err != nil {
			return nil, apperr.Persistence("scan price row", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list prices", err)
	}

	return result, nil
}

// IsConstraintViolation reports whether err is a PostgreSQL integrity
// constraint violation (SQLSTATE class 23)
func IsConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	return false
}

func (p ConnectionParams) String() string {
	if p.URL != "" {
		if u, err := url.Parse(p.URL); err == nil {
			return u.Redacted()
		}
		return "postgres://***"
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", p.Host, p.Port, p.User, p.DBName, p.SSLMode)
}
