package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS quote_leads (
	id            UUID PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	client_name   TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	holder_age    INTEGER NOT NULL,
	health        TEXT NOT NULL,
	coverage      TEXT NOT NULL,
	continuity    TEXT NOT NULL,
	clinics       TEXT NOT NULL DEFAULT '',
	insured_count INTEGER NOT NULL,
	quoter_role   TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_quote_leads_created_at ON quote_leads (created_at)`,
	`CREATE TABLE IF NOT EXISTS folio_counters (
	name  TEXT PRIMARY KEY,
	value BIGINT NOT NULL
)`,
}

// EnsureSchema creates the lead and folio tables when they are missing.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
