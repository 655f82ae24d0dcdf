// Package auth holds the passcode flows that reuse the verification core for
// purposes other than signup: password recovery and phone confirmation.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saas-starter-api/internal/application/verify"
	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

type RecoveryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type PhoneOTPRequest struct {
	Code string `json:"code" validate:"required"`
}

type Service interface {
	RequestPasswordRecovery(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	RequestPhoneConfirmation(ctx context.Context, accountID string) error
	ValidatePhoneOTP(ctx context.Context, accountID, code string) error
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, accountID string) (*domain.Account, error)
	Update(ctx context.Context, email string, updates map[string]interface{}) error
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

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	accounts  accountStore
	secrets   secretStore
	verifier  verifier
	mailer    mailer
	sms       smsSender
	generate  func(int) string
	otpLength int
	otpTTL    time.Duration
}

type ServiceDeps struct {
	AccountRepo accountStore
	SecretRepo  secretStore
	Verifier    verifier
	Mailer      mailer
	SMSSender   smsSender
	Generate    func(int) string // tests only; nil means crypto/rand
	OTPLength   int
	OTPTTL      time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts:  deps.AccountRepo,
		secrets:   deps.SecretRepo,
		verifier:  deps.Verifier,
		mailer:    deps.Mailer,
		sms:       deps.SMSSender,
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

func (s *service) RequestPasswordRecovery(ctx context.Context, email string) error {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	code, err := s.issue(ctx, a.Email, domain.PurposePasswordReset)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes()))
	if err := s.mailer.SendEmail(a.Email, "Password reset", body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	outcome, err := s.verifier.Verify(ctx, req.Email, domain.PurposePasswordReset, req.Code)
	if err != nil {
		return err
	}
	if outcome != verify.OutcomeValid {
		return domain.ErrCodeInvalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	email := domain.NormalizeEmail(req.Email)
	if err := s.accounts.Update(ctx, email, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}
	if err := s.secrets.Delete(ctx, domain.SecretIdentifier(email, domain.PurposePasswordReset)); err != nil {
		slog.Warn("failed to delete redeemed reset secret", "err", err)
	}
	return nil
}

func (s *service) RequestPhoneConfirmation(ctx context.Context, accountID string) error {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if a.Phone == nil {
		return fmt.Errorf("no phone number on account: %w", domain.ErrBadRequest)
	}
	code, err := s.issue(ctx, a.Email, domain.PurposePhoneConfirmation)
	if err != nil {
		return err
	}
	if err := s.sms.SendSMS(ctx, *a.Phone, "Your verification code: "+code); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}

func (s *service) ValidatePhoneOTP(ctx context.Context, accountID, code string) error {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	outcome, err := s.verifier.Verify(ctx, a.Email, domain.PurposePhoneConfirmation, code)
	if err != nil {
		return err
	}
	if outcome != verify.OutcomeValid {
		return domain.ErrCodeInvalid
	}
	if err := s.accounts.Update(ctx, a.Email, map[string]interface{}{"phone_confirmed": true}); err != nil {
		return err
	}
	if err := s.secrets.Delete(ctx, domain.SecretIdentifier(a.Email, domain.PurposePhoneConfirmation)); err != nil {
		slog.Warn("failed to delete redeemed phone secret", "account_id", a.AccountID, "err", err)
	}
	return nil
}

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
