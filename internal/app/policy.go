/**
 * @description
 * Decision engine for wallet-gated account confirmation.
 */
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/walletgate/confirmation-service/internal/config"
	"github.com/walletgate/confirmation-service/internal/domain"
)

// ConfirmationStore defines the confirmation-record operations the app
// layer needs.
type ConfirmationStore interface {
	IsConfirmed(ctx context.Context, accountID string) (bool, error)
	EnsureRecord(ctx context.Context, accountID string) (*domain.ConfirmationRecord, error)
	MarkConfirmed(ctx context.Context, accountID string) error
	ClaimConfirmation(ctx context.Context, accountID string) (bool, error)
	ReleaseClaim(ctx context.Context, accountID string) error
	DeleteRecord(ctx context.Context, accountID string) error
	ForEachStaleUnconfirmed(ctx context.Context, olderThan time.Duration, fn func(accountID string) error) error
}

// Policy evaluates whether an account meets the configured payment
// criterion and what debit, if any, the caller must apply.
type Policy struct {
	cfg   config.Config
	store ConfirmationStore
}

// NewPolicy creates a new policy engine.
func NewPolicy(cfg config.Config, store ConfirmationStore) *Policy {
	return &Policy{cfg: cfg, store: store}
}

// Evaluate runs the decision table for one account against its current
// balance. Checks run in a fixed order and short-circuit: exemption, then
// already-confirmed, then the criterion itself.
func (p *Policy) Evaluate(ctx context.Context, account *domain.Account, balance int64) (domain.Decision, error) {
	if !p.cfg.ApplyToAllAuth && account.AuthMethod != domain.AuthWallet {
		return domain.Decision{Kind: domain.DecisionNotApplicable}, nil
	}

	confirmed, err := p.store.IsConfirmed(ctx, account.ID)
	if err != nil {
		return domain.Decision{}, err
	}
	if confirmed {
		return domain.Decision{Kind: domain.DecisionAlreadyConfirmed}, nil
	}

	switch p.cfg.Criterion() {
	case domain.CriterionBalance:
		if balance >= p.cfg.RequiredBalance {
			decision := domain.Decision{Kind: domain.DecisionConfirmed}
			if p.cfg.ExtraFee > 0 {
				decision.DebitAmount = p.cfg.ExtraFee
				decision.DebitReason = domain.DebitReasonExtraFee
			}
			return decision, nil
		}
		return domain.Decision{
			Kind:      domain.DecisionPending,
			Shortfall: p.cfg.RequiredBalance - balance,
		}, nil

	case domain.CriterionFee:
		if balance >= p.cfg.RequiredFee {
			return domain.Decision{
				Kind:        domain.DecisionConfirmed,
				DebitAmount: p.cfg.RequiredFee,
				DebitReason: domain.DebitReasonFee,
			}, nil
		}
		return domain.Decision{
			Kind:      domain.DecisionPending,
			Shortfall: p.cfg.RequiredFee - balance,
		}, nil
	}

	return domain.Decision{}, fmt.Errorf("%w: criterion %q", domain.ErrConfigurationError, p.cfg.ConfirmCriteria)
}

// RequiredAmount returns the amount the criterion compares the balance
// against, used for payment-required prompts.
func (p *Policy) RequiredAmount() int64 {
	if p.cfg.Criterion() == domain.CriterionFee {
		return p.cfg.RequiredFee
	}
	return p.cfg.RequiredBalance
}
