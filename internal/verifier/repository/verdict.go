// Package repository persists verdicts to PostgreSQL.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/indenture-io/indenture/internal/verifier/model"
)

// ErrNotFound is returned when a verdict is not found in the database.
var ErrNotFound = errors.New("verdict not found")

// VerdictRepository provides CRUD operations for verdicts against PostgreSQL.
type VerdictRepository struct {
	db *pgxpool.Pool
}

// NewVerdictRepository creates a new VerdictRepository.
func NewVerdictRepository(db *pgxpool.Pool) *VerdictRepository {
	return &VerdictRepository{db: db}
}

// Create inserts a new verdict.
func (r *VerdictRepository) Create(ctx context.Context, v *model.Verdict) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO verdicts (id, tx_digest, contract, outcome, violation_code, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		v.ID, v.TxDigest, v.Contract, v.Outcome, v.ViolationCode, v.Reason, v.CreatedAt,
	)
	return err
}

// GetByID retrieves a verdict by its UUID.
func (r *VerdictRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Verdict, error) {
	query := `SELECT id, tx_digest, contract, outcome, violation_code, reason, created_at
	          FROM verdicts WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetByDigest retrieves the verdict recorded for a transaction digest.
func (r *VerdictRepository) GetByDigest(ctx context.Context, txDigest string) (*model.Verdict, error) {
	query := `SELECT id, tx_digest, contract, outcome, violation_code, reason, created_at
	          FROM verdicts WHERE tx_digest = $1
	          ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(ctx, query, txDigest)
}

// GetByDigestAndContract retrieves the verdict recorded for a transaction
// digest under one specific contract. The digest is computed from the
// transaction view alone, so the same view verified under two contracts
// produces two distinct verdicts.
func (r *VerdictRepository) GetByDigestAndContract(ctx context.Context, txDigest, contractName string) (*model.Verdict, error) {
	query := `SELECT id, tx_digest, contract, outcome, violation_code, reason, created_at
	          FROM verdicts WHERE tx_digest = $1 AND contract = $2
	          ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(ctx, query, txDigest, contractName)
}

// List returns verdicts newest first, optionally filtered by outcome.
func (r *VerdictRepository) List(ctx context.Context, outcome string, limit, offset int) ([]*model.Verdict, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, tx_digest, contract, outcome, violation_code, reason, created_at
		FROM verdicts
		WHERE ($1 = '' OR outcome = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, outcome, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verdicts []*model.Verdict
	for rows.Next() {
		v, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}

// CountByOutcome returns verdict counts keyed by outcome.
func (r *VerdictRepository) CountByOutcome(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT outcome, COUNT(*) FROM verdicts GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

func (r *VerdictRepository) scanOne(ctx context.Context, query string, args ...any) (*model.Verdict, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return r.scan(rows)
}

// scan reads a single verdict from a pgx.Rows cursor.
func (r *VerdictRepository) scan(rows pgx.Rows) (*model.Verdict, error) {
	var v model.Verdict
	err := rows.Scan(
		&v.ID, &v.TxDigest, &v.Contract, &v.Outcome,
		&v.ViolationCode, &v.Reason, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
