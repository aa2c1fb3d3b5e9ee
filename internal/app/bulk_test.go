package app

import (
	"context"
	"testing"

	"github.com/walletgate/confirmation-service/internal/domain"
)

func TestBulkConfirm_SkipsMissingAccounts(t *testing.T) {
	cfg := testConfig(domain.CriterionBalance)
	users := newMemIdentityStore(
		walletAccount("a1", "maria"),
		walletAccount("a2", "tunde"),
	)
	confirmations := newMemConfirmationStore()
	publisher := &memPublisher{}
	workflow := newTestWorkflow(cfg, users, confirmations, newMemLedger(nil), publisher)

	result, err := workflow.BulkConfirm(context.Background(), []string{"a1", "ghost", "a2"})
	if err != nil {
		t.Fatalf("BulkConfirm returned error: %v", err)
	}
	if result.Requested != 3 || result.Confirmed != 2 || result.Skipped != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	for _, id := range []string{"a1", "a2"} {
		confirmed, _ := confirmations.IsConfirmed(context.Background(), id)
		if !confirmed {
			t.Fatalf("account %s should be confirmed", id)
		}
	}
	if publisher.published(domain.EventAccountConfirmed) != 2 {
		t.Fatalf("expected two confirmed events, got %d", publisher.published(domain.EventAccountConfirmed))
	}
}

func TestBulkConfirm_BypassesCriterionAndDebit(t *testing.T) {
	cfg := testConfig(domain.CriterionFee)
	users := newMemIdentityStore(walletAccount("a1", "maria"))
	confirmations := newMemConfirmationStore()
	// No funds at all; an admin confirm ignores the criterion.
	ledger := newMemLedger(map[string]int64{"a1": 0})
	workflow := newTestWorkflow(cfg, users, confirmations, ledger, nil)

	result, err := workflow.BulkConfirm(context.Background(), []string{"a1"})
	if err != nil {
		t.Fatalf("BulkConfirm returned error: %v", err)
	}
	if result.Confirmed != 1 {
		t.Fatalf("expected one confirmation, got %+v", result)
	}
	if ledger.debitCount() != 0 {
		t.Fatal("administrative confirmation must not debit")
	}
	account, _ := users.FindByID(context.Background(), "a1")
	if !account.Confirmed {
		t.Fatal("identity confirmed flag should be set")
	}
}

func TestBulkConfirm_AlreadyConfirmedIsIdempotent(t *testing.T) {
	cfg := testConfig(domain.CriterionBalance)
	users := newMemIdentityStore(walletAccount("a1", "maria"))
	confirmations := newMemConfirmationStore()
	workflow := newTestWorkflow(cfg, users, confirmations, newMemLedger(nil), nil)

	for i := 0; i < 2; i++ {
		result, err := workflow.BulkConfirm(context.Background(), []string{"a1"})
		if err != nil {
			t.Fatalf("BulkConfirm returned error: %v", err)
		}
		if result.Confirmed != 1 {
			t.Fatalf("run %d: expected confirmed count 1, got %+v", i, result)
		}
	}
	confirmed, _ := confirmations.IsConfirmed(context.Background(), "a1")
	if !confirmed {
		t.Fatal("account should stay confirmed")
	}
}
