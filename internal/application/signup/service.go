// Package signup orchestrates account provisioning and the one-time-passcode
// confirmation that flips an account from provisioned to active.
package signup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saas-starter-api/internal/application/verify"
	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/pkg/id"
	"github.com/saas-starter-api/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

const (
	verifySubject  = "Verify your email"
	verifyBodyTmpl = "Your verification code is %s. It expires in %d minutes."
)

type Service interface {
	// Signup provisions an unverified account, issues a passcode and attempts
	// delivery. Delivery failure does not roll anything back: the account
	// stays recoverable through Resend and the caller still gets success.
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error)
	// Confirm redeems a passcode and promotes the account to verified.
	Confirm(ctx context.Context, email, code string) error
	// Resend reissues a passcode for a still-unverified account, superseding
	// any pending one. Here a delivery failure IS surfaced — there is no
	// other forward progress to protect.
	Resend(ctx context.Context, email string) error
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	SetVerified(ctx context.Context, email string) error
}

type secretStore interface {
	Put(ctx context.Context, rec *domain.SecretRecord) error
	Delete(ctx context.Context, identifier string) error
}

type verifier interface {
	Verify(ctx context.Context, subject string, purpose domain.Purpose, presented string) (verify.Outcome, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	accounts  accountStore
	secrets   secretStore
	verifier  verifier
	mailer    mailer
	generate  func(int) string
	otpLength int
	otpTTL    time.Duration
}

type ServiceDeps struct {
	AccountRepo accountStore
	SecretRepo  secretStore
	Verifier    verifier
	Mailer      mailer
	// Generate overrides the code generator; tests only. Nil means crypto/rand.
	Generate  func(int) string
	OTPLength int
	OTPTTL    time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts:  deps.AccountRepo,
		secrets:   deps.SecretRepo,
		verifier:  deps.Verifier,
		mailer:    deps.Mailer,
		generate:  deps.Generate,
		otpLength: deps.OTPLength,
		otpTTL:    deps.OTPTTL,
	}
	if s.generate == nil {
		s.generate = otp.Code
	}
	if s.otpLength <= 0 {
		s.otpLength = otp.DefaultLength
	}
	if s.otpTTL <= 0 {
		s.otpTTL = 5 * time.Minute
	}
	return s
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error) {
	email := domain.NormalizeEmail(req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		Email:        email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Verified:     false,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The conditional put is the uniqueness check: two concurrent signups for
	// the same email race here and exactly one wins.
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}

	code, err := s.issue(ctx, email, domain.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendEmail(email, verifySubject, s.verifyBody(code)); err != nil {
		// The account and the pending secret are in place, so Resend can
		// recover this signup; the caller is told "check your email" either
		// way, which also keeps response timing uniform.
		slog.Error("signup verification email failed", "account_id", a.AccountID, "err", err)
	}
	return a, nil
}

func (s *service) Confirm(ctx context.Context, email, code string) error {
	if len(code) != s.otpLength {
		return fmt.Errorf("code must be %d digits: %w", s.otpLength, domain.ErrBadRequest)
	}

	outcome, err := s.verifier.Verify(ctx, email, domain.PurposeEmailVerification, code)
	if err != nil {
		return err
	}
	if outcome != verify.OutcomeValid {
		// NotFound and Mismatch collapse into one external kind so a caller
		// cannot tell whether a code ever existed.
		return domain.ErrCodeInvalid
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	// Promotion first, cleanup second: if the delete fails the account is
	// already verified and a leftover record is harmless, so a retry is safe.
	// SetVerified is idempotent — a concurrent confirm that also saw Valid
	// just re-applies the same write.
	if err := s.accounts.SetVerified(ctx, a.Email); err != nil {
		return err
	}
	identifier := domain.SecretIdentifier(email, domain.PurposeEmailVerification)
	if err := s.secrets.Delete(ctx, identifier); err != nil {
		slog.Warn("failed to delete redeemed secret", "account_id", a.AccountID, "err", err)
	}
	return nil
}

func (s *service) Resend(ctx context.Context, email string) error {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a.Verified {
		return fmt.Errorf("email already confirmed: %w", domain.ErrAlreadyVerified)
	}

	code, err := s.issue(ctx, a.Email, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(a.Email, verifySubject, s.verifyBody(code)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}

// issue generates a fresh code and persists its hash, superseding any pending
// record for the same identifier. Returns the plaintext for delivery only.
func (s *service) issue(ctx context.Context, email string, purpose domain.Purpose) (string, error) {
	code := s.generate(s.otpLength)
	now := time.Now()
	rec := &domain.SecretRecord{
		Identifier: domain.SecretIdentifier(email, purpose),
		CodeHash:   otp.Hash(code),
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(s.otpTTL).Unix(),
	}
	if err := s.secrets.Put(ctx, rec); err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) verifyBody(code string) string {
	return fmt.Sprintf(verifyBodyTmpl, code, int(s.otpTTL.Minutes()))
}
