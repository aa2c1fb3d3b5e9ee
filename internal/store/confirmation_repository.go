/**
 * @description
 * Data access layer for confirmation records.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/walletgate/confirmation-service/internal/domain"
)

var ErrRecordNotFound = errors.New("confirmation record not found")

// ConfirmationRepository handles database operations for confirmation
// records. One record per account, upserted on the unique account_id.
type ConfirmationRepository struct {
	db *pgxpool.Pool
}

// NewConfirmationRepository creates a new repository.
func NewConfirmationRepository(db *pgxpool.Pool) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// IsConfirmed reports whether the account has a confirmed record.
func (r *ConfirmationRepository) IsConfirmed(ctx context.Context, accountID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM confirmation_records
			WHERE account_id = $1
			  AND confirmed = TRUE
		)
	`
	var confirmed bool
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// EnsureRecord creates the account's confirmation record if it does not
// exist yet and returns the current row.
func (r *ConfirmationRepository) EnsureRecord(ctx context.Context, accountID string) (*domain.ConfirmationRecord, error) {
	insert := `
		INSERT INTO confirmation_records (account_id)
		VALUES ($1)
		ON CONFLICT (account_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, accountID); err != nil {
		return nil, err
	}
	return r.GetRecord(ctx, accountID)
}

// GetRecord fetches the confirmation record for an account.
func (r *ConfirmationRepository) GetRecord(ctx context.Context, accountID string) (*domain.ConfirmationRecord, error) {
	query := `
		SELECT id, account_id, confirmed, created_at, updated_at
		FROM confirmation_records
		WHERE account_id = $1
	`
	var record domain.ConfirmationRecord
	if err := r.db.QueryRow(ctx, query, accountID).Scan(
		&record.ID,
		&record.AccountID,
		&record.Confirmed,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// MarkConfirmed upserts the account's record as confirmed. Safe to call
// repeatedly: created_at is preserved, updated_at is bumped.
func (r *ConfirmationRepository) MarkConfirmed(ctx context.Context, accountID string) error {
	query := `
		INSERT INTO confirmation_records (account_id, confirmed)
		VALUES ($1, TRUE)
		ON CONFLICT (account_id) DO UPDATE
		SET confirmed = TRUE,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, accountID)
	return err
}

// ClaimConfirmation atomically flips an unconfirmed record to confirmed and
// reports whether this caller won the claim. Concurrent confirmations of the
// same account race on this single row update, so at most one caller sees
// claimed=true and goes on to apply the debit.
func (r *ConfirmationRepository) ClaimConfirmation(ctx context.Context, accountID string) (bool, error) {
	if _, err := r.EnsureRecord(ctx, accountID); err != nil {
		return false, err
	}
	query := `
		UPDATE confirmation_records
		SET confirmed = TRUE,
		    updated_at = NOW()
		WHERE account_id = $1
		  AND confirmed = FALSE
		RETURNING id
	`
	var id string
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReleaseClaim reverts a claimed record back to unconfirmed. Used when the
// debit fails after the claim, so the account stays pending.
func (r *ConfirmationRepository) ReleaseClaim(ctx context.Context, accountID string) error {
	query := `
		UPDATE confirmation_records
		SET confirmed = FALSE,
		    updated_at = NOW()
		WHERE account_id = $1
	`
	_, err := r.db.Exec(ctx, query, accountID)
	return err
}

// DeleteRecord removes the account's confirmation record.
func (r *ConfirmationRepository) DeleteRecord(ctx context.Context, accountID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM confirmation_records WHERE account_id = $1`, accountID)
	return err
}

// ForEachStaleUnconfirmed streams account ids whose record is still
// unconfirmed and older than the retention window, one row at a time, in
// creation order. The scan is a single pass per cleanup run.
func (r *ConfirmationRepository) ForEachStaleUnconfirmed(ctx context.Context, olderThan time.Duration, fn func(accountID string) error) error {
	query := `
		SELECT account_id
		FROM confirmation_records
		WHERE confirmed = FALSE
		  AND created_at < $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var accountID string
		if err := rows.Scan(&accountID); err != nil {
			return err
		}
		if err := fn(accountID); err != nil {
			return err
		}
	}
	return rows.Err()
}
