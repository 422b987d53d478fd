package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/visaeval/visaeval-backend/pkg/database"
	"github.com/visaeval/visaeval-backend/pkg/errors"
)

// Schema creates the evaluations table. Every statement is idempotent.
const Schema = `
	CREATE TABLE IF NOT EXISTS evaluations (
		id UUID PRIMARY KEY,
		request_id VARCHAR(100) NOT NULL DEFAULT '',
		country VARCHAR(100) NOT NULL,
		visa_type VARCHAR(150) NOT NULL,
		purpose VARCHAR(50) NOT NULL DEFAULT '',
		applicant_name VARCHAR(255) NOT NULL DEFAULT '',
		applicant_email VARCHAR(255) NOT NULL DEFAULT '',
		partner_key VARCHAR(255) NOT NULL DEFAULT '',
		documents TEXT[] NOT NULL DEFAULT '{}',
		profile JSONB NOT NULL,
		result JSONB NOT NULL,
		score INTEGER NOT NULL,
		normalized_score DOUBLE PRECISION NOT NULL,
		confidence INTEGER NOT NULL,
		is_passing BOOLEAN NOT NULL,
		used_default_requirements BOOLEAN NOT NULL DEFAULT FALSE,
		status VARCHAR(20) NOT NULL DEFAULT 'completed',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT evaluations_score_range CHECK (score BETWEEN 0 AND 100),
		CONSTRAINT evaluations_confidence_range CHECK (confidence BETWEEN 50 AND 95),
		CONSTRAINT evaluations_status_valid CHECK (status IN ('completed', 'failed'))
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_country ON evaluations (LOWER(country), created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_evaluations_partner ON evaluations (partner_key, created_at DESC);
`

const selectColumns = `
	id, request_id, country, visa_type, purpose, applicant_name, applicant_email,
	partner_key, documents, profile, result, score, normalized_score, confidence,
	is_passing, used_default_requirements, status, created_at
`

// PostgresRepository persists evaluations with sqlx.
type PostgresRepository struct {
	db *database.DB
}

func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// schemaLockID serializes EnsureSchema across replicas starting together.
const schemaLockID = 7420311

// EnsureSchema applies Schema under a transaction-scoped advisory lock.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
			return fmt.Errorf("failed to lock evaluations schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("failed to create evaluations schema: %w", err)
		}
		return nil
	})
}

// Create inserts rec, assigning an id and status when unset. A zero CreatedAt
// is filled in by the database.
func (r *PostgresRepository) Create(ctx context.Context, rec *EvaluationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = StatusCompleted
	}
	if rec.Documents == nil {
		rec.Documents = []string{}
	}

	query := `
		INSERT INTO evaluations (
			id, request_id, country, visa_type, purpose, applicant_name, applicant_email,
			partner_key, documents, profile, result, score, normalized_score, confidence,
			is_passing, used_default_requirements, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			COALESCE($18::timestamptz, NOW()))
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.RequestID, rec.Country, rec.VisaType, rec.Purpose,
		rec.ApplicantName, rec.ApplicantEmail, rec.PartnerKey, rec.Documents,
		[]byte(rec.Profile), []byte(rec.Result), rec.Score, rec.NormalizedScore, rec.Confidence,
		rec.IsPassing, rec.UsedDefaultRequirements, rec.Status,
		sql.NullTime{Time: rec.CreatedAt, Valid: !rec.CreatedAt.IsZero()},
	).Scan(&rec.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}
	return nil
}

// GetByID returns the evaluation or a NotFound error. Malformed ids are not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*EvaluationRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("evaluation")
	}

	var rec EvaluationRecord
	query := `SELECT ` + selectColumns + ` FROM evaluations WHERE id = $1`
	err := r.db.GetContext(ctx, &rec, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("evaluation")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return &rec, nil
}

// List returns a page of evaluations, newest first, and the total match count.
func (r *PostgresRepository) List(ctx context.Context, params ListParams) ([]*EvaluationRecord, int64, error) {
	params.normalize()

	var (
		conditions []string
		args       []interface{}
	)
	if params.Country != "" {
		args = append(args, strings.TrimSpace(params.Country))
		conditions = append(conditions, fmt.Sprintf("LOWER(country) = LOWER($%d)", len(args)))
	}
	if params.VisaType != "" {
		args = append(args, strings.TrimSpace(params.VisaType))
		conditions = append(conditions, fmt.Sprintf("LOWER(visa_type) = LOWER($%d)", len(args)))
	}
	if params.PartnerKey != "" {
		args = append(args, params.PartnerKey)
		conditions = append(conditions, fmt.Sprintf("partner_key = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM evaluations"+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count evaluations: %w", err)
	}

	query := `SELECT ` + selectColumns + ` FROM evaluations` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.offset())

	records := []*EvaluationRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return records, total, nil
}
