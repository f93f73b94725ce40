package leads

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cotizador/internal/models"
)

const insertLeadQuery = `
INSERT INTO quote_leads (
	id, created_at, client_name, email, phone, holder_age, health,
	coverage, continuity, clinics, insured_count, quoter_role
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO NOTHING`

// PostgresRecorder inserts leads into quote_leads. A lead ID already
// stored is skipped, so a retried job does not fail on the primary key.
type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Record(ctx context.Context, lead models.Lead) error {
	id := lead.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, insertLeadQuery,
		id,
		lead.Timestamp,
		lead.Client,
		lead.Email,
		lead.Phone,
		lead.HolderAge,
		string(lead.Health),
		string(lead.Tier),
		string(lead.Continuity),
		strings.Join(lead.Clinics, ", "),
		lead.Insured,
		lead.Role,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}
