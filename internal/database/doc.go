// Package database stores validated spot prices in PostgreSQL.
//
// One table, bitcoin_data, keyed by a surrogate serial id with an
// insertion timestamp. Identical amounts are separate observations.
package database
