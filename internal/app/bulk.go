/**
 * @description
 * Administrative bulk confirmation.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/walletgate/confirmation-service/internal/domain"
)

// BulkResult summarizes a bulk confirmation run.
type BulkResult struct {
	Requested int `json:"requested"`
	Confirmed int `json:"confirmed"`
	Skipped   int `json:"skipped"`
}

// BulkConfirm marks each account as confirmed, bypassing the payment
// criterion. Accounts are processed independently: a failure on one id is
// logged and does not block the rest. Returns how many were confirmed.
func (w *Workflow) BulkConfirm(ctx context.Context, accountIDs []string) (BulkResult, error) {
	result := BulkResult{Requested: len(accountIDs)}

	for _, accountID := range accountIDs {
		account, err := w.users.FindByID(ctx, accountID)
		if err != nil {
			log.Printf("WARN: bulk confirm skipping account %s: %v", accountID, err)
			result.Skipped++
			continue
		}

		if err := w.store.MarkConfirmed(ctx, account.ID); err != nil {
			log.Printf("WARN: bulk confirm failed to mark account %s: %v", account.ID, err)
			result.Skipped++
			continue
		}
		if err := w.users.SetConfirmedFlag(ctx, account.ID, true); err != nil {
			log.Printf("WARN: bulk confirm failed to set identity flag for account %s: %v", account.ID, err)
		}

		w.publishEvent(ctx, domain.EventAccountConfirmed, domain.AccountConfirmedEvent{
			AccountID: account.ID,
			Username:  account.Username,
			Criterion: w.cfg.Criterion(),
			Timestamp: time.Now().UTC(),
		})
		result.Confirmed++
	}

	return result, nil
}
