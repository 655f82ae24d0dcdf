package domain

import "time"

// Purpose tags a secret with the flow it belongs to. Subject+Purpose forms
// the composite identifier: at most one live secret exists per identifier.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email-verification"
	PurposePasswordReset     Purpose = "password-reset"
	PurposePhoneConfirmation Purpose = "phone-verification"
)

// SecretRecord is a pending one-time passcode, stored hashed.
// PK: identifier ("<normalized subject>:<purpose>").
// ExpiresAt is a Unix timestamp that doubles as the DynamoDB TTL attribute;
// expiry is enforced at read time, so a not-yet-swept row is still dead.
type SecretRecord struct {
	Identifier string `json:"identifier" dynamodbav:"identifier"`
	CodeHash   string `json:"-" dynamodbav:"code_hash"`
	CreatedAt  int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt  int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// SecretIdentifier builds the composite key for a subject and purpose.
func SecretIdentifier(subject string, purpose Purpose) string {
	return NormalizeEmail(subject) + ":" + string(purpose)
}

// Expired reports whether the record is dead at the given instant.
func (r *SecretRecord) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.Unix()
}
