/**
 * @description
 * Scheduled cleanup of stale unconfirmed accounts.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/walletgate/confirmation-service/internal/domain"
	"github.com/walletgate/confirmation-service/internal/store"
)

// CleanupResult summarizes one cleanup run.
type CleanupResult struct {
	Scanned          int `json:"scanned"`
	Deleted          int `json:"deleted"`
	SkippedConfirmed int `json:"skipped_confirmed"`
	SkippedFunded    int `json:"skipped_funded"`
	Errors           int `json:"errors"`
}

// CleanupStaleUnconfirmed deletes accounts that never completed payment
// confirmation within the retention window. Each candidate is re-checked
// against the store immediately before deletion, since a user can confirm
// between the scan and the delete. Accounts holding more than the free
// allotment are kept regardless of age: a funded account is never deleted.
func (w *Workflow) CleanupStaleUnconfirmed(ctx context.Context, logger *slog.Logger) (CleanupResult, error) {
	retention := time.Duration(w.cfg.StaleRetentionHours) * time.Hour
	logger.Info("cleanup task started", "retention", retention.String())

	var result CleanupResult
	err := w.store.ForEachStaleUnconfirmed(ctx, retention, func(accountID string) error {
		result.Scanned++

		confirmed, err := w.store.IsConfirmed(ctx, accountID)
		if err != nil {
			logger.Error("failed to re-check confirmation status", "account_id", accountID, "error", err)
			result.Errors++
			return nil
		}
		if confirmed {
			logger.Info("account confirmed since scan, skipping", "account_id", accountID)
			result.SkippedConfirmed++
			return nil
		}

		account, err := w.users.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				// Orphaned record; the account is already gone.
				if delErr := w.store.DeleteRecord(ctx, accountID); delErr != nil {
					logger.Error("failed to delete orphaned record", "account_id", accountID, "error", delErr)
					result.Errors++
				}
				return nil
			}
			logger.Error("failed to load account", "account_id", accountID, "error", err)
			result.Errors++
			return nil
		}

		balance, err := w.ledger.GetBalance(ctx, account.ID)
		if err != nil {
			logger.Error("failed to read balance", "account_id", account.ID, "error", err)
			result.Errors++
			return nil
		}
		if balance > w.cfg.FreeAllotment {
			logger.Info("account holds funds above the free allotment, keeping", "account_id", account.ID, "balance", balance)
			result.SkippedFunded++
			return nil
		}

		if err := w.users.DeleteAccount(ctx, account.ID); err != nil {
			logger.Error("failed to delete account", "account_id", account.ID, "error", err)
			result.Errors++
			return nil
		}
		if err := w.store.DeleteRecord(ctx, account.ID); err != nil {
			logger.Error("failed to delete confirmation record", "account_id", account.ID, "error", err)
			result.Errors++
			return nil
		}

		w.publishEvent(ctx, domain.EventAccountDeleted, domain.AccountDeletedEvent{
			AccountID: account.ID,
			Username:  account.Username,
			Timestamp: time.Now().UTC(),
		})
		logger.Info("deleted stale unconfirmed account", "account_id", account.ID)
		result.Deleted++
		return nil
	})
	if err != nil {
		return result, err
	}

	logger.Info("cleanup task finished",
		"scanned", result.Scanned,
		"deleted", result.Deleted,
		"skipped_confirmed", result.SkippedConfirmed,
		"skipped_funded", result.SkippedFunded,
		"errors", result.Errors,
	)
	return result, nil
}
