/**
 * @description
 * Domain models for accounts gated by wallet confirmation.
 */
package domain

import "time"

// AuthMethod identifies which authentication plugin created an account.
type AuthMethod string

const (
	// AuthWallet is this plugin's own method; accounts created through it
	// are always subject to the payment gate.
	AuthWallet AuthMethod = "wallet"
	// AuthManual covers accounts created by an administrator.
	AuthManual AuthMethod = "manual"
	// AuthGuest marks the anonymous placeholder account.
	AuthGuest AuthMethod = "guest"
)

// Account is the identity-system view of a user. The confirmation service
// only reads it and updates the Confirmed and Secret fields.
type Account struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      *string    `json:"email,omitempty"`
	AuthMethod AuthMethod `json:"auth_method"`
	Confirmed  bool       `json:"confirmed"`
	Suspended  bool       `json:"suspended"`
	SiteAdmin  bool       `json:"site_admin"`
	Secret     *string    `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsGuest reports whether the account is the anonymous placeholder.
func (a *Account) IsGuest() bool {
	return a.AuthMethod == AuthGuest || a.Username == "guest"
}
