package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Schema creates every table the portal uses. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS customers (
	id             BIGSERIAL PRIMARY KEY,
	full_name      TEXT NOT NULL DEFAULT '',
	meter_number   TEXT NOT NULL DEFAULT '',
	account_number TEXT NOT NULL DEFAULT '',
	national_id    TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	unit_code      TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS customers_meter_number_idx ON customers (lower(meter_number));
CREATE INDEX IF NOT EXISTS customers_account_number_idx ON customers (lower(account_number));
CREATE INDEX IF NOT EXISTS customers_national_id_idx ON customers (lower(national_id));
CREATE INDEX IF NOT EXISTS customers_phone_idx ON customers (lower(phone));
CREATE INDEX IF NOT EXISTS customers_unit_code_idx ON customers (lower(unit_code));
CREATE INDEX IF NOT EXISTS customers_email_idx ON customers (lower(email));

CREATE TABLE IF NOT EXISTS lookup_history (
	id             BIGSERIAL PRIMARY KEY,
	user_id        UUID NULL,
	query_type     TEXT NOT NULL,
	query_value    TEXT NOT NULL CHECK (query_value <> ''),
	full_name      TEXT NOT NULL DEFAULT '',
	meter_number   TEXT NOT NULL DEFAULT '',
	account_number TEXT NOT NULL DEFAULT '',
	national_id    TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	unit_code      TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL,
	result_found   BOOLEAN NOT NULL DEFAULT FALSE,
	message        VARCHAR(255) NOT NULL DEFAULT '',
	ip_address     TEXT NULL,
	user_agent     VARCHAR(255) NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
CREATE INDEX IF NOT EXISTS lookup_history_created_at_idx ON lookup_history (created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	phone         TEXT NOT NULL UNIQUE,
	national_id   TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS service_requests (
	id          UUID PRIMARY KEY,
	reference   VARCHAR(20) NOT NULL UNIQUE,
	service_key TEXT NOT NULL,
	user_id     UUID NULL,
	customer_id BIGINT NULL,
	role        TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
