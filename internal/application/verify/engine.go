// Package verify implements the read-only passcode check at the center of
// every confirmation flow.
package verify

import (
	"context"
	"errors"

	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/pkg/otp"
)

// Outcome is the tri-state result of a verification check.
type Outcome int

const (
	// OutcomeValid means the presented code matches the live record.
	OutcomeValid Outcome = iota
	// OutcomeNotFound means no live record exists: never issued, already
	// redeemed, superseded by a reissue, or lazily expired.
	OutcomeNotFound
	// OutcomeMismatch means a live record exists but the code is wrong.
	OutcomeMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeMismatch:
		return "mismatch"
	}
	return "unknown"
}

type secretStore interface {
	Get(ctx context.Context, identifier string) (*domain.SecretRecord, error)
}

// Engine compares a presented code against the stored record. It never
// mutates anything: redemption (delete + promote) is a separate step, so a
// failed attempt does not consume the secret and callers can distinguish
// "wrong code, try again" from "expired, need a new one" internally.
type Engine struct {
	secrets secretStore
}

func NewEngine(secrets secretStore) *Engine {
	return &Engine{secrets: secrets}
}

// Verify checks presented against the record for subject+purpose.
// Comparison is an exact match over SHA-256 digests; short-lived codes
// behind the transport rate limiter do not need a constant-time compare,
// and hashing both sides makes the stored form useless to an attacker
// with table access.
func (e *Engine) Verify(ctx context.Context, subject string, purpose domain.Purpose, presented string) (Outcome, error) {
	rec, err := e.secrets.Get(ctx, domain.SecretIdentifier(subject, purpose))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return OutcomeNotFound, nil
		}
		return OutcomeNotFound, err
	}
	if rec.CodeHash != otp.Hash(presented) {
		return OutcomeMismatch, nil
	}
	return OutcomeValid, nil
}
