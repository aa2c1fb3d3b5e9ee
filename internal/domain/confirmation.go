/**
 * @description
 * Domain models for the wallet confirmation state machine.
 */
package domain

import "time"

// Criterion selects which payment condition confirms an account.
type Criterion string

const (
	// CriterionBalance confirms an account once its balance reaches the
	// required minimum, optionally debiting an extra fee.
	CriterionBalance Criterion = "balance"
	// CriterionFee confirms an account by debiting a one-time fee.
	CriterionFee Criterion = "fee"
)

// Debit reason tags passed to the ledger.
const (
	DebitReasonFee      = "new_user_fee"
	DebitReasonExtraFee = "new_user_extra_fee"
)

// ConfirmationRecord is the one-per-account confirmation row owned by this
// service. Records are created lazily on first evaluation and upserted, never
// duplicated.
type ConfirmationRecord struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecisionKind enumerates policy evaluation results.
type DecisionKind string

const (
	DecisionAlreadyConfirmed DecisionKind = "already_confirmed"
	DecisionConfirmed        DecisionKind = "confirmed"
	DecisionPending          DecisionKind = "pending"
	DecisionNotApplicable    DecisionKind = "not_applicable"
)

// Decision is the outcome of a policy evaluation. DebitAmount is the amount
// the caller must apply through the ledger before persisting the
// confirmation; it is zero when no debit is owed. Shortfall is set only for
// pending decisions and is always positive.
type Decision struct {
	Kind        DecisionKind `json:"kind"`
	DebitAmount int64        `json:"debit_amount,omitempty"`
	DebitReason string       `json:"debit_reason,omitempty"`
	Shortfall   int64        `json:"shortfall,omitempty"`
}

// OutcomeKind enumerates the user-facing results of a confirmation request.
type OutcomeKind string

const (
	OutcomeAlreadyConfirmed OutcomeKind = "already_confirmed"
	OutcomeConfirmed        OutcomeKind = "confirmed"
	OutcomePaymentRequired  OutcomeKind = "payment_required"
	OutcomeLogout           OutcomeKind = "logout"
)

// Outcome is what the confirmation endpoint reports back to the host layer.
// RedirectURL carries the post-confirmation destination when set. Shortfall
// and Currency are populated for payment-required outcomes so the host can
// render a top-up prompt.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	AccountID   string      `json:"account_id,omitempty"`
	Username    string      `json:"username,omitempty"`
	LoggedIn    bool        `json:"logged_in"`
	RedirectURL string      `json:"redirect_url,omitempty"`
	Balance     int64       `json:"balance,omitempty"`
	Required    int64       `json:"required,omitempty"`
	Shortfall   int64       `json:"shortfall,omitempty"`
	Currency    string      `json:"currency,omitempty"`
}

// RedirectDecision tells the host whether an intercepted request must be
// redirected to the confirmation page.
type RedirectDecision struct {
	Redirect bool   `json:"redirect"`
	URL      string `json:"url,omitempty"`
}

// NoRedirect is the decision for requests that may proceed untouched.
var NoRedirect = RedirectDecision{}
