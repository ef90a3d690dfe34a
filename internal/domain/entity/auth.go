package entity

// ProviderType identifies where a credential comes from.
type ProviderType string

const (
	ProviderTypeLocal  ProviderType = "local"
	ProviderTypeGoogle ProviderType = "google"
)

// RejectReason explains why an authentication attempt did not succeed.
type RejectReason string

const (
	// RejectInvalidCredentials covers both an unknown email and a wrong password.
	RejectInvalidCredentials RejectReason = "invalid_credentials"

	// RejectProviderError means the OAuth profile was unusable or conflicts with a different identity.
	RejectProviderError RejectReason = "provider_error"

	// RejectAccountLinkRequired means a password account owns the email and must link the provider explicitly.
	RejectAccountLinkRequired RejectReason = "account_link_required"
)

// AuthOutcome is the transient result of an authentication attempt.
// Exactly one of User or Reason is set.
type AuthOutcome struct {
	User        *User
	Reason      RejectReason
	Provisioned bool // The user was created by this attempt.
}

// Authenticated builds a successful outcome.
func Authenticated(user *User) AuthOutcome {
	return AuthOutcome{User: user}
}

// Provisioned builds a successful outcome for a user created during the attempt.
func Provisioned(user *User) AuthOutcome {
	return AuthOutcome{User: user, Provisioned: true}
}

// Rejected builds a failed outcome.
func Rejected(reason RejectReason) AuthOutcome {
	return AuthOutcome{Reason: reason}
}

// IsAuthenticated reports whether the attempt succeeded.
func (o AuthOutcome) IsAuthenticated() bool {
	return o.User != nil
}
