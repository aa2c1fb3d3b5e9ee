/**
 * @description
 * Event payloads published to the message broker.
 */
package domain

import "time"

// Routing keys on the walletgate.events topic exchange.
const (
	EventAccountConfirmed        = "account.confirmed"
	EventAccountDeleted          = "account.deleted"
	EventConfirmationLinkCreated = "account.confirmation_link"
)

// AccountConfirmedEvent is published once an account completes payment
// confirmation.
type AccountConfirmedEvent struct {
	AccountID   string    `json:"account_id"`
	Username    string    `json:"username"`
	Criterion   Criterion `json:"criterion"`
	DebitAmount int64     `json:"debit_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// AccountDeletedEvent is published when cleanup removes a stale unconfirmed
// account.
type AccountDeletedEvent struct {
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// ConfirmationLinkEvent carries a confirmation link to the notification
// service, which emails it to the user.
type ConfirmationLinkEvent struct {
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	Timestamp time.Time `json:"timestamp"`
}
