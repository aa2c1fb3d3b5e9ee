/**
 * @description
 * PostgreSQL-backed identity store. The accounts table is owned by the
 * identity system; this service only reads it and updates the confirmed
 * and secret columns.
 */
package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/walletgate/confirmation-service/internal/domain"
)

var ErrAccountNotFound = errors.New("account not found")

const secretLength = 15

const secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const accountColumns = `id, username, email, auth_method, confirmed, suspended, site_admin, secret, created_at, updated_at`

// UserRepository is the PostgreSQL implementation of the identity store.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.AuthMethod,
		&account.Confirmed,
		&account.Suspended,
		&account.SiteAdmin,
		&account.Secret,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByUsername fetches an account by its username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE username = $1`, accountColumns)
	return scanAccount(r.db.QueryRow(ctx, query, username))
}

// FindByID fetches an account by its id.
func (r *UserRepository) FindByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1`, accountColumns)
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// SetConfirmedFlag updates the identity system's own confirmed flag.
func (r *UserRepository) SetConfirmedFlag(ctx context.Context, accountID string, confirmed bool) error {
	query := `UPDATE accounts SET confirmed = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, accountID, confirmed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// EnsureSecret returns the account's secret token, generating and persisting
// one on first use. A secret, once written, is stable: the guarded update
// only fills a NULL column, so a concurrent generation loses quietly and the
// follow-up read returns whichever value won.
func (r *UserRepository) EnsureSecret(ctx context.Context, accountID string) (string, error) {
	candidate, err := randomSecret()
	if err != nil {
		return "", err
	}

	update := `UPDATE accounts SET secret = $2, updated_at = NOW() WHERE id = $1 AND secret IS NULL`
	if _, err := r.db.Exec(ctx, update, accountID, candidate); err != nil {
		return "", err
	}

	var secret *string
	if err := r.db.QueryRow(ctx, `SELECT secret FROM accounts WHERE id = $1`, accountID).Scan(&secret); err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	if secret == nil {
		return "", fmt.Errorf("secret for account %s not persisted", accountID)
	}
	return *secret, nil
}

// DeleteAccount removes the account from the identity system.
func (r *UserRepository) DeleteAccount(ctx context.Context, accountID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreateAccount inserts a new account and returns it.
func (r *UserRepository) CreateAccount(ctx context.Context, username string, email *string, method domain.AuthMethod) (*domain.Account, error) {
	query := fmt.Sprintf(`
		INSERT INTO accounts (id, username, email, auth_method)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, accountColumns)
	return scanAccount(r.db.QueryRow(ctx, query, uuid.NewString(), username, email, method))
}

func randomSecret() (string, error) {
	buf := make([]byte, secretLength)
	max := big.NewInt(int64(len(secretAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = secretAlphabet[n.Int64()]
	}
	return string(buf), nil
}
