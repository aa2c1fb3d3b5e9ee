/**
 * @description
 * Confirmation workflow: link issuance, confirmation requests, and
 * login-time interception.
 */
package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/walletgate/confirmation-service/internal/config"
	"github.com/walletgate/confirmation-service/internal/domain"
	"github.com/walletgate/confirmation-service/internal/store"
)

// IdentityStore defines the identity-system operations the workflow needs.
// Account rows are owned by the identity system; only the confirmed and
// secret fields are ever written here.
type IdentityStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByID(ctx context.Context, accountID string) (*domain.Account, error)
	SetConfirmedFlag(ctx context.Context, accountID string, confirmed bool) error
	EnsureSecret(ctx context.Context, accountID string) (string, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

// Ledger defines the wallet operations the workflow needs. Debit returns an
// error wrapping domain.ErrInsufficientBalance when the balance no longer
// covers the amount at commit time.
type Ledger interface {
	GetBalance(ctx context.Context, accountID string) (int64, error)
	Debit(ctx context.Context, accountID string, amount int64, reason string) error
}

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

const eventsExchange = "walletgate.events"

// Workflow orchestrates the confirmation state machine: AwaitingEmail,
// AwaitingPayment, Confirmed. The email stage is skipped entirely when
// email confirmation is disabled.
type Workflow struct {
	cfg       config.Config
	users     IdentityStore
	store     ConfirmationStore
	ledger    Ledger
	policy    *Policy
	cache     SessionCache
	publisher EventPublisher
}

// NewWorkflow creates the confirmation workflow.
func NewWorkflow(cfg config.Config, users IdentityStore, confirmations ConfirmationStore, ledger Ledger, policy *Policy, cache SessionCache, publisher EventPublisher) *Workflow {
	if cache == nil {
		cache = NoopSessionCache{}
	}
	return &Workflow{
		cfg:       cfg,
		users:     users,
		store:     confirmations,
		ledger:    ledger,
		policy:    policy,
		cache:     cache,
		publisher: publisher,
	}
}

// IssueConfirmationLink builds the confirmation URL for an account,
// generating the account secret on first use. returnURL, when non-empty and
// local, is carried through so the user lands back where they started.
func (w *Workflow) IssueConfirmationLink(ctx context.Context, account *domain.Account, returnURL string) (string, error) {
	secret, err := w.users.EnsureSecret(ctx, account.ID)
	if err != nil {
		return "", fmt.Errorf("failed to ensure account secret: %w", err)
	}

	link, err := url.Parse(strings.TrimSuffix(w.cfg.PublicBaseURL, "/") + "/confirm")
	if err != nil {
		return "", err
	}
	q := link.Query()
	q.Set("username", account.Username)
	q.Set("secret", secret)
	if local := localReturnURL(returnURL); local != "" {
		q.Set("returnUrl", local)
	}
	link.RawQuery = q.Encode()
	return link.String(), nil
}

// SendConfirmationLink publishes the confirmation link for email delivery.
// Used at signup when the email confirmation stage is enabled.
func (w *Workflow) SendConfirmationLink(ctx context.Context, account *domain.Account, returnURL string) error {
	link, err := w.IssueConfirmationLink(ctx, account, returnURL)
	if err != nil {
		return err
	}

	email := ""
	if account.Email != nil {
		email = *account.Email
	}
	event := domain.ConfirmationLinkEvent{
		AccountID: account.ID,
		Username:  account.Username,
		Email:     email,
		Link:      link,
		Timestamp: time.Now().UTC(),
	}
	if w.publisher == nil {
		return fmt.Errorf("%w: no notifier configured", domain.ErrNotificationFailure)
	}
	if err := w.publisher.Publish(ctx, eventsExchange, domain.EventConfirmationLinkCreated, event); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailure, err)
	}
	return nil
}

// RegisterSignup makes sure a new account has a confirmation record and
// remembers where to send the user after confirmation. When the email stage
// is enabled the confirmation link is dispatched for delivery.
func (w *Workflow) RegisterSignup(ctx context.Context, accountID, wantsURL string) error {
	account, err := w.users.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return domain.ErrUnknownAccount
		}
		return err
	}

	// Exempt auth methods never enter the payment gate, so no record.
	if w.cfg.ApplyToAllAuth || account.AuthMethod == domain.AuthWallet {
		if _, err := w.store.EnsureRecord(ctx, account.ID); err != nil {
			return err
		}
	}
	w.cache.SetWantsURL(ctx, account.ID, localReturnURL(wantsURL))

	if w.cfg.EmailConfirmEnabled {
		return w.SendConfirmationLink(ctx, account, wantsURL)
	}
	return nil
}

// FindAccount loads an account by id for the host layer.
func (w *Workflow) FindAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := w.users.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.ErrUnknownAccount
		}
		return nil, err
	}
	return account, nil
}

// HandleConfirmationRequest processes a confirmation link. The secret must
// match the account's stored secret; on the first valid visit the identity
// confirmed flag is set (email stage done) and the payment criterion is
// evaluated, applying the debit exactly once when it is met.
func (w *Workflow) HandleConfirmationRequest(ctx context.Context, sessionID, username, secret, returnURL string) (domain.Outcome, error) {
	account, err := w.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return domain.Outcome{}, domain.ErrUnknownAccount
		}
		return domain.Outcome{}, err
	}
	if account.IsGuest() {
		return domain.Outcome{}, domain.ErrUnknownAccount
	}
	if account.Suspended {
		return domain.Outcome{}, domain.ErrAccountSuspended
	}

	if !secretMatches(account, secret) {
		return domain.Outcome{}, domain.ErrInvalidConfirmationData
	}

	// Email stage complete: advance to awaiting payment.
	if !account.Confirmed {
		if err := w.users.SetConfirmedFlag(ctx, account.ID, true); err != nil {
			return domain.Outcome{}, err
		}
		account.Confirmed = true
	}

	balance, err := w.ledger.GetBalance(ctx, account.ID)
	if err != nil {
		return domain.Outcome{}, err
	}

	decision, err := w.policy.Evaluate(ctx, account, balance)
	if err != nil {
		return domain.Outcome{}, err
	}

	switch decision.Kind {
	case domain.DecisionAlreadyConfirmed, domain.DecisionNotApplicable:
		w.cache.SetConfirmed(ctx, sessionID, account.ID)
		return w.confirmedOutcome(ctx, account, domain.OutcomeAlreadyConfirmed, returnURL), nil

	case domain.DecisionConfirmed:
		if err := w.applyConfirmation(ctx, account, decision); err != nil {
			return domain.Outcome{}, err
		}
		w.cache.SetConfirmed(ctx, sessionID, account.ID)
		return w.confirmedOutcome(ctx, account, domain.OutcomeConfirmed, returnURL), nil

	case domain.DecisionPending:
		return domain.Outcome{
			Kind:      domain.OutcomePaymentRequired,
			AccountID: account.ID,
			Username:  account.Username,
			Balance:   balance,
			Required:  w.policy.RequiredAmount(),
			Shortfall: decision.Shortfall,
			Currency:  w.cfg.Currency,
		}, nil
	}

	return domain.Outcome{}, fmt.Errorf("%w: unhandled decision %q", domain.ErrConfigurationError, decision.Kind)
}

// InterceptRequest decides whether an authenticated request must be
// redirected to the confirmation page. Site admins, guests, non-interactive
// requests, exempt auth methods, and allow-listed routes always pass.
func (w *Workflow) InterceptRequest(ctx context.Context, sessionID string, account *domain.Account, route domain.RouteID) (domain.RedirectDecision, error) {
	if account == nil || account.IsGuest() || account.SiteAdmin {
		return domain.NoRedirect, nil
	}
	if domain.NonInteractiveRoute(route) || domain.RouteExemptFromRedirect(route) {
		return domain.NoRedirect, nil
	}
	if !w.cfg.ApplyToAllAuth && account.AuthMethod != domain.AuthWallet {
		return domain.NoRedirect, nil
	}
	if w.cache.Confirmed(ctx, sessionID, account.ID) {
		return domain.NoRedirect, nil
	}

	balance, err := w.ledger.GetBalance(ctx, account.ID)
	if err != nil {
		return domain.NoRedirect, err
	}
	decision, err := w.policy.Evaluate(ctx, account, balance)
	if err != nil {
		return domain.NoRedirect, err
	}

	switch decision.Kind {
	case domain.DecisionAlreadyConfirmed, domain.DecisionNotApplicable:
		w.cache.SetConfirmed(ctx, sessionID, account.ID)
		return domain.NoRedirect, nil

	case domain.DecisionConfirmed:
		// The criterion is met mid-session. Apply it here so the user is
		// not bounced through the confirmation page.
		if err := w.applyConfirmation(ctx, account, decision); err != nil {
			if errors.Is(err, domain.ErrInsufficientBalance) {
				link, linkErr := w.IssueConfirmationLink(ctx, account, "")
				if linkErr != nil {
					return domain.NoRedirect, linkErr
				}
				return domain.RedirectDecision{Redirect: true, URL: link}, nil
			}
			return domain.NoRedirect, err
		}
		w.cache.SetConfirmed(ctx, sessionID, account.ID)
		return domain.NoRedirect, nil
	}

	link, err := w.IssueConfirmationLink(ctx, account, "")
	if err != nil {
		return domain.NoRedirect, err
	}
	return domain.RedirectDecision{Redirect: true, URL: link}, nil
}

// applyConfirmation claims the confirmation record, applies the optional
// debit, and publishes the confirmed event. The claim is a storage-level
// guard: concurrent callers race on one row flip, so the debit happens at
// most once per account. A debit failure releases the claim and leaves the
// account pending.
func (w *Workflow) applyConfirmation(ctx context.Context, account *domain.Account, decision domain.Decision) error {
	claimed, err := w.store.ClaimConfirmation(ctx, account.ID)
	if err != nil {
		return err
	}
	if !claimed {
		// Another request already confirmed (and debited) this account.
		return nil
	}

	if decision.DebitAmount > 0 {
		if err := w.debitWithRetry(ctx, account, decision); err != nil {
			if releaseErr := w.store.ReleaseClaim(ctx, account.ID); releaseErr != nil {
				log.Printf("WARN: failed to release confirmation claim for account %s: %v", account.ID, releaseErr)
			}
			return err
		}
	}

	if err := w.users.SetConfirmedFlag(ctx, account.ID, true); err != nil {
		log.Printf("WARN: failed to set identity confirmed flag for account %s: %v", account.ID, err)
	}

	w.publishEvent(ctx, domain.EventAccountConfirmed, domain.AccountConfirmedEvent{
		AccountID:   account.ID,
		Username:    account.Username,
		Criterion:   w.cfg.Criterion(),
		DebitAmount: decision.DebitAmount,
		Timestamp:   time.Now().UTC(),
	})
	return nil
}

// debitWithRetry applies the decision's debit. If the balance raced away
// between the read and the debit, the balance is re-read and re-evaluated
// once; a second shortfall surfaces as ErrInsufficientBalance.
func (w *Workflow) debitWithRetry(ctx context.Context, account *domain.Account, decision domain.Decision) error {
	err := w.ledger.Debit(ctx, account.ID, decision.DebitAmount, decision.DebitReason)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		return err
	}

	balance, readErr := w.ledger.GetBalance(ctx, account.ID)
	if readErr != nil {
		return domain.ErrInsufficientBalance
	}
	required := w.policy.RequiredAmount()
	if balance < required {
		return domain.ErrInsufficientBalance
	}
	if err := w.ledger.Debit(ctx, account.ID, decision.DebitAmount, decision.DebitReason); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return domain.ErrInsufficientBalance
		}
		return err
	}
	return nil
}

func (w *Workflow) confirmedOutcome(ctx context.Context, account *domain.Account, kind domain.OutcomeKind, returnURL string) domain.Outcome {
	redirect := localReturnURL(returnURL)
	if redirect == "" {
		if wants := w.cache.WantsURL(ctx, account.ID); wants != "" {
			redirect = wants
		}
	}
	w.cache.ClearWantsURL(ctx, account.ID)

	return domain.Outcome{
		Kind:        kind,
		AccountID:   account.ID,
		Username:    account.Username,
		LoggedIn:    true,
		RedirectURL: redirect,
	}
}

func (w *Workflow) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, eventsExchange, routingKey, body); err != nil {
		log.Printf("WARN: failed to publish %s event: %v", routingKey, err)
	}
}

// secretMatches verifies the presented secret against the account's stored
// one in constant time. An account without a stored secret has nothing to
// verify against and passes, matching the lazy generation semantics.
func secretMatches(account *domain.Account, presented string) bool {
	if account.Secret == nil || *account.Secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(*account.Secret), []byte(presented)) == 1
}

// localReturnURL keeps only relative, local destinations. Anything carrying
// a scheme or host is dropped.
func localReturnURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}
	if !strings.HasPrefix(parsed.Path, "/") {
		return ""
	}
	return parsed.String()
}
